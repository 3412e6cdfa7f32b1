// Package scaffold generates new bibat projects: it asks the wizard
// questions, renders the embedded project template and prunes the paths
// the answers opt out of.
package scaffold

import (
	"fmt"
	"strings"

	"github.com/teddygroves/bibat/internal/errors"
)

// Answers maps field names to the answers given so far.
type Answers map[string]string

// DefaultFunc derives a default from earlier answers.
type DefaultFunc func(Answers) string

// Field is one wizard question.
type Field interface {
	FieldName() string
	PromptText() string
	// DefaultFor returns the default offered given the answers so far.
	DefaultFor(answers Answers) string
	// Accept normalizes an answer, reporting whether it is allowed.
	Accept(answer string) (string, bool)
	Validate() error
}

// StringField accepts any text.
type StringField struct {
	Name        string
	Prompt      string
	Default     string
	DefaultFunc DefaultFunc
}

func (f StringField) FieldName() string  { return f.Name }
func (f StringField) PromptText() string { return f.Prompt }

func (f StringField) DefaultFor(answers Answers) string {
	return defaultFor(f.Default, f.DefaultFunc, answers)
}

func (f StringField) Accept(answer string) (string, bool) { return answer, true }

// Validate requires a default or a default function.
func (f StringField) Validate() error {
	if f.Default == "" && f.DefaultFunc == nil {
		return errors.ValidationError(fmt.Sprintf("field %q: either the default or the default function must be set", f.Name))
	}
	return nil
}

// ChoiceField accepts one of Options, by text or by 1-based number.
type ChoiceField struct {
	Name        string
	Prompt      string
	Options     []string
	Default     string
	DefaultFunc DefaultFunc
}

func (f ChoiceField) FieldName() string  { return f.Name }
func (f ChoiceField) PromptText() string { return f.Prompt }

func (f ChoiceField) DefaultFor(answers Answers) string {
	return defaultFor(f.Default, f.DefaultFunc, answers)
}

func (f ChoiceField) Accept(answer string) (string, bool) {
	for i, opt := range f.Options {
		if answer == opt || answer == fmt.Sprint(i+1) {
			return opt, true
		}
	}
	return "", false
}

// Validate requires options, a default or default function, and a
// default that is one of the options.
func (f ChoiceField) Validate() error {
	if len(f.Options) == 0 {
		return errors.ValidationError(fmt.Sprintf("field %q has no options", f.Name))
	}
	if f.Default == "" && f.DefaultFunc == nil {
		return errors.ValidationError(fmt.Sprintf("field %q: either the default or the default function must be set", f.Name))
	}
	if f.Default != "" && !f.isOption(f.Default) {
		return errors.ValidationError(fmt.Sprintf("field %q: default %s not in options [%s]", f.Name, f.Default, strings.Join(f.Options, ", ")))
	}
	return nil
}

func (f ChoiceField) isOption(answer string) bool {
	for _, opt := range f.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

func defaultFor(def string, fn DefaultFunc, answers Answers) string {
	if answers != nil && fn != nil {
		return fn(answers)
	}
	return def
}

// License and docs choices.
const (
	LicenseMIT  = "MIT"
	LicenseBSD3 = "BSD-3-Clause"
	LicenseNone = "No license file"
	DocsQuarto  = "Quarto"
	DocsSphinx  = "Sphinx"
	DocsNone    = "No docs"
	AnswerYes   = "y"
)

// WizardFields are asked in this order.
func WizardFields() []Field {
	return []Field{
		StringField{Name: "project_name", Prompt: "What is your project called?", Default: "Project Name"},
		StringField{Name: "author_name", Prompt: "What is your name?", Default: "Author name"},
		StringField{Name: "author_email", Prompt: "What is your email?", Default: "Author email"},
		StringField{Name: "coc_contact", Prompt: "Who should be the code of conduct contact?", DefaultFunc: func(a Answers) string {
			if email := a["author_email"]; email != "" {
				return email
			}
			return "Code of conduct contact"
		}},
		StringField{Name: "description", Prompt: "Please briefly describe your project", Default: "A short description of the project."},
		ChoiceField{Name: "open_source_license", Prompt: "Choose an open source license from these options:",
			Options: []string{LicenseMIT, LicenseBSD3, LicenseNone}, Default: LicenseMIT},
		ChoiceField{Name: "docs_format", Prompt: "How would you like to document your project?",
			Options: []string{DocsQuarto, DocsSphinx, DocsNone}, Default: DocsQuarto},
		StringField{Name: "create_tests_directory", Prompt: "Would you like to create a tests directory?", Default: AnswerYes},
		StringField{Name: "create_dotgithub_directory", Prompt: "Would you like to create a .github directory?", Default: AnswerYes},
	}
}
