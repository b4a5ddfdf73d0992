// Package prompt collects the server address, slot name and password from
// the operator.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/abl-archipelago/bridge/ap"
)

// Credentials is one login attempt's worth of operator input.
type Credentials struct {
	Address  string // normalized host:port
	Slot     string
	Password string
}

// Prompter reads line-oriented input. Stdin in production, a buffer in
// tests.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Credentials prompts until the address validates and the slot name is
// non-blank. The password may be empty. It returns an error only when
// input ends.
func (p *Prompter) Credentials() (Credentials, error) {
	for {
		fmt.Fprintf(p.out, "Server address (e.g. %s:38281): ", ap.DefaultHost)
		raw, err := p.readLine()
		if err != nil {
			return Credentials{}, err
		}
		address, err := ap.NormalizeServerAddress(raw)
		if err != nil {
			fmt.Fprintln(p.out, err)
			fmt.Fprintln(p.out)
			continue
		}

		fmt.Fprint(p.out, "Slot name: ")
		slot, err := p.readLine()
		if err != nil {
			return Credentials{}, err
		}
		slot = strings.TrimSpace(slot)
		if slot == "" {
			fmt.Fprintln(p.out, "Slot name is required.")
			fmt.Fprintln(p.out)
			continue
		}

		fmt.Fprint(p.out, "Password (optional): ")
		password, err := p.readLine()
		if err != nil {
			return Credentials{}, err
		}

		return Credentials{Address: address, Slot: slot, Password: password}, nil
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
