package system

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"syscall"
)

// Command describes an external program invocation. Arguments are passed
// as an argv slice and never go through a shell.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
	Env   []string // appended to the current environment
	User  string   // run as this OS user (empty = current)

	// Stdout, when set, receives the program output instead of the
	// returned string. Used for output that must not become a string.
	Stdout io.Writer

	// Passthrough attaches the terminal (progress bars, fsck output).
	Passthrough bool
}

// String renders the command for debug output
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t'\"") {
			parts[i] = strconv.Quote(p)
		}
	}
	s := strings.Join(parts, " ")
	if c.User != "" {
		s = "[" + c.User + "] " + s
	}
	return s
}

// Runner executes external commands
type Runner interface {
	Exec(c Command) (string, error)
}

// RunWith executes name with args on r and returns stdout
func RunWith(r Runner, name string, args ...string) (string, error) {
	return r.Exec(Command{Name: name, Args: args})
}

// Executor handles execution of external commands
type Executor struct {
	debug bool
	out   io.Writer
}

// NewExecutor creates a new executor
func NewExecutor(debug bool) *Executor {
	return &Executor{
		debug: debug,
		out:   os.Stderr,
	}
}

// Exec executes a prepared command
func (e *Executor) Exec(c Command) (string, error) {
	if e.debug {
		fmt.Fprintf(e.out, "[DEBUG] Executing: %s\n", c)
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.User != "" {
		cred, err := credentialFor(c.User)
		if err != nil {
			return "", err
		}
		if cred != nil {
			cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
		}
	}

	if c.Passthrough {
		if cmd.Stdin == nil {
			cmd.Stdin = os.Stdin
		}
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("%s failed: %w", c.Name, err)
		}
		return "", nil
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%s failed: %w\nStderr: %s",
			c.Name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// CommandExists checks if a command is available in PATH
func (e *Executor) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CheckDependencies verifies required commands are available
func (e *Executor) CheckDependencies(deps []string) error {
	var missing []string
	for _, dep := range deps {
		if !e.CommandExists(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required commands: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// ExitCode extracts the process exit status from an Exec error.
// Returns 0 for nil and -1 when the error did not come from a process exit.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// credentialFor returns nil when name is the current user
func credentialFor(name string) (*syscall.Credential, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("unknown user %q: %w", name, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid uid for %q: %w", name, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid gid for %q: %w", name, err)
	}
	if int(uid) == os.Geteuid() {
		return nil, nil
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
