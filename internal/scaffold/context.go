package scaffold

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teddygroves/bibat/internal/errors"
)

// Context is what project templates are rendered with: the wizard answers
// plus derived values.
type Context map[string]string

// RepoName derives a directory name from a project name.
func RepoName(projectName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(projectName)), " ", "_")
}

// NewContext adds repo_name and bibat_version to answers.
func NewContext(answers Answers, version string) Context {
	ctx := Context{}
	for k, v := range answers {
		ctx[k] = v
	}
	if ctx["repo_name"] == "" {
		ctx["repo_name"] = RepoName(ctx["project_name"])
	}
	ctx["bibat_version"] = version
	return ctx
}

// Is reports whether a yes/no answer is yes.
func (c Context) Is(key string) bool {
	return strings.EqualFold(strings.TrimSpace(c[key]), AnswerYes)
}

// LoadContextFile reads prefilled answers from YAML, either under a
// default_context key or as a flat map. Missing fields take their
// defaults and choice answers must be valid options.
func LoadContextFile(path string, fields []Field, version string) (Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("config file %s", path))
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.ConfigurationError("config_file", fmt.Sprintf("%s: %v", path, err))
	}
	values := doc
	if nested, ok := doc["default_context"].(map[string]any); ok {
		values = nested
	}

	answers := Answers{}
	for k, v := range values {
		if v == nil {
			continue
		}
		answers[k] = fmt.Sprint(v)
	}
	for _, f := range fields {
		name := f.FieldName()
		answer, given := answers[name]
		if !given {
			answers[name] = f.DefaultFor(answers)
			continue
		}
		accepted, ok := f.Accept(answer)
		if !ok {
			return nil, errors.ConfigurationError(name, fmt.Sprintf("%q is not a valid choice", answer))
		}
		answers[name] = accepted
	}
	return NewContext(answers, version), nil
}
