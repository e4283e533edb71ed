package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
)

// ErrNotInteractive is returned when an address is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("stdin is not a terminal, pass the address with -address")

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prompter asks for addresses line by line
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer. EOF after a partial line is an answer,
// EOF on an empty line is an empty answer.
func (p *Prompter) ask(question string) (string, error) {
	if _, err := fmt.Fprint(p.out, question); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// SourceAddress asks for the address every other chain address is derived from
func (p *Prompter) SourceAddress() (string, error) {
	for {
		answer, err := p.ask("Please enter your address: ")
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		// a closed input would otherwise loop forever
		if _, err := p.in.Peek(1); errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no address entered")
		}
	}
}

// Overrides asks, for every chain whose address was derived, whether another address
// should be used instead. Chains in skip are not asked about. An empty answer keeps the
// derived address.
func (p *Prompter) Overrides(
	chains []address.Chain,
	derived map[string]string,
	sourcePrefix string,
	skip map[string]string,
) (map[string]string, error) {
	overrides := make(map[string]string)
	for _, chain := range chains {
		if chain.Prefix == sourcePrefix {
			continue
		}
		if _, ok := skip[chain.Key]; ok {
			continue
		}
		answer, err := p.ask(fmt.Sprintf(
			"Please enter the address for chain %s or hit enter to use the derived address (%s): ",
			chain.Name, derived[chain.Key],
		))
		if err != nil {
			return nil, err
		}
		if answer != "" {
			overrides[chain.Key] = answer
		}
	}
	return overrides, nil
}
