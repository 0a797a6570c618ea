package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the command's input. Secrets are read with
// echo disabled when the input is a terminal.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

// line prompts for a non-empty value.
func (p *prompter) line(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		line, err := p.reader.ReadString('\n')
		value := strings.TrimSpace(line)
		if value != "" {
			return value, nil
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}

// secret prompts for a non-empty value without echo.
func (p *prompter) secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}

	for {
		fmt.Fprintf(p.out, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		// Print newline after password input
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		if value := strings.TrimSpace(string(b)); value != "" {
			return value, nil
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}

// valueOr returns v when set and prompts otherwise.
func (p *prompter) valueOr(v, label string, hidden bool) (string, error) {
	if v != "" {
		return v, nil
	}
	if hidden {
		return p.secret(label)
	}
	return p.line(label)
}
