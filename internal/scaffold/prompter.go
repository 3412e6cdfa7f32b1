package scaffold

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks wizard questions on a terminal-like pair of streams.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prompts for one field. An empty answer takes the default; an answer
// the field does not accept is reported and asked again.
func (p *Prompter) Ask(field Field, answers Answers) (string, error) {
	def := field.DefaultFor(answers)
	for {
		if choice, ok := field.(ChoiceField); ok {
			fmt.Fprintf(p.out, "%s\n", choice.Prompt)
			for i, opt := range choice.Options {
				fmt.Fprintf(p.out, "  %d - %s\n", i+1, opt)
			}
			fmt.Fprintf(p.out, "Choose from %s [%s]: ", strings.Join(choice.Options, ", "), def)
		} else {
			fmt.Fprintf(p.out, "%s [%s]: ", field.PromptText(), def)
		}

		line, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", fmt.Errorf("reading answer to %q: %w", field.FieldName(), err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = def
		}
		if accepted, ok := field.Accept(answer); ok {
			return accepted, nil
		}
		fmt.Fprintf(p.out, "Error: %q is not a valid choice.\n", answer)
	}
}

// AskAll asks every field in order, passing earlier answers to default
// functions.
func (p *Prompter) AskAll(fields []Field) (Answers, error) {
	answers := Answers{}
	for _, f := range fields {
		answer, err := p.Ask(f, answers)
		if err != nil {
			return nil, err
		}
		answers[f.FieldName()] = answer
	}
	return answers, nil
}
