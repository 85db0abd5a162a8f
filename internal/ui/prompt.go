package ui

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/nace/vcmounter/internal/system"
	"golang.org/x/term"
)

// Prompt modes accepted by NewPrompter
const (
	PromptAuto     = "auto"
	PromptSystemd  = "systemd"
	PromptTerminal = "terminal"
	PromptStdin    = "stdin"
)

// AskPasswordCommand is the out-of-band prompt helper
const AskPasswordCommand = "systemd-ask-password"

// Prompter asks the operator for a secret. Replies are returned as a fresh
// byte slice the caller must zero.
type Prompter interface {
	Ask(prompt string) ([]byte, error)
	Pause(message string) error
}

// NewPrompter picks a prompter for mode. Auto prefers systemd-ask-password
// (works at boot from the console and through agents), then the terminal,
// then plain lines from stdin.
func NewPrompter(mode string, executor *system.Executor) (Prompter, error) {
	switch mode {
	case PromptSystemd:
		return NewSystemdPrompter(executor), nil
	case PromptTerminal:
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return nil, fmt.Errorf("stdin is not a terminal")
		}
		return NewTerminalPrompter(os.Stdin, os.Stderr), nil
	case PromptStdin:
		return NewLinePrompter(os.Stdin, os.Stderr), nil
	case PromptAuto, "":
		if executor.CommandExists(AskPasswordCommand) {
			return NewSystemdPrompter(executor), nil
		}
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return NewTerminalPrompter(os.Stdin, os.Stderr), nil
		}
		return NewLinePrompter(os.Stdin, os.Stderr), nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q (use %s, %s, %s or %s)",
			mode, PromptAuto, PromptSystemd, PromptTerminal, PromptStdin)
	}
}

// SystemdPrompter asks through systemd-ask-password
type SystemdPrompter struct {
	runner system.Runner
}

// NewSystemdPrompter creates a new systemd prompter
func NewSystemdPrompter(runner system.Runner) *SystemdPrompter {
	return &SystemdPrompter{runner: runner}
}

// Ask implements Prompter
func (p *SystemdPrompter) Ask(prompt string) ([]byte, error) {
	var out bytes.Buffer
	defer func() {
		b := out.Bytes()
		system.Zero(b[:cap(b)])
	}()

	_, err := p.runner.Exec(system.Command{
		Name:   AskPasswordCommand,
		Args:   []string{prompt},
		Stdin:  os.Stdin,
		Stdout: &out,
	})
	if err != nil {
		return nil, fmt.Errorf("password prompt failed: %w", err)
	}
	return copyLine(out.Bytes()), nil
}

// Pause implements Prompter
func (p *SystemdPrompter) Pause(message string) error {
	reply, err := p.Ask(message)
	system.Zero(reply)
	return err
}

// TerminalPrompter reads without echo from a terminal
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTerminalPrompter creates a new terminal prompter
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

// Ask implements Prompter
func (p *TerminalPrompter) Ask(prompt string) ([]byte, error) {
	fmt.Fprintf(p.out, "%s ", prompt)
	reply, err := term.ReadPassword(int(p.in.Fd()))
	fmt.Fprintln(p.out) // New line after password input
	if err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}
	return reply, nil
}

// Pause implements Prompter
func (p *TerminalPrompter) Pause(message string) error {
	reply, err := p.Ask(message)
	system.Zero(reply)
	return err
}

// LinePrompter reads plain lines, for piped input
type LinePrompter struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter creates a new line prompter
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

// Ask implements Prompter. End of input reads as "quit".
func (p *LinePrompter) Ask(prompt string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s ", prompt)
	line, err := p.reader.ReadBytes('\n')
	defer system.Zero(line)
	if err == io.EOF && len(line) == 0 {
		fmt.Fprintln(p.out)
		return []byte("quit"), nil
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}
	return copyLine(line), nil
}

// Pause implements Prompter
func (p *LinePrompter) Pause(message string) error {
	reply, err := p.Ask(message)
	system.Zero(reply)
	return err
}

// copyLine copies b without the trailing line break
func copyLine(b []byte) []byte {
	b = bytes.TrimRight(b, "\r\n")
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
