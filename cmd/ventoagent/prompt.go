package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks interactive questions. Secrets are read without echo when
// input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readSecret reads a line without echo; nil means read from in.
	readSecret func() (string, error)
}

func newTerminalPrompter() *prompter {
	p := &prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			return string(b), err
		}
	}
	return p
}

// ask returns the trimmed answer, or def for an empty answer.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *prompter) secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if p.readSecret != nil {
		s, err := p.readSecret()
		return strings.TrimSpace(s), err
	}
	return p.readLine()
}

// readLine accepts a final line without a newline.
func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
