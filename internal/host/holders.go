package host

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/nace/vcmounter/internal/system"
	"github.com/shirou/gopsutil/v3/process"
)

// Holder is a process keeping files open below a mount point
type Holder struct {
	PID  int32
	Name string
}

// HolderManager finds and kills processes that keep a mount point busy
type HolderManager struct {
	runner system.Runner
}

// NewHolderManager creates a new holder manager
func NewHolderManager(runner system.Runner) *HolderManager {
	return &HolderManager{
		runner: runner,
	}
}

// List returns the processes whose working directory, executable or
// open files lie below mountPoint
func (m *HolderManager) List(mountPoint string) ([]Holder, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	self := int32(os.Getpid())
	var holders []Holder
	for _, p := range procs {
		if p.Pid == self || !holds(p, mountPoint) {
			continue
		}
		name, _ := p.Name()
		holders = append(holders, Holder{PID: p.Pid, Name: name})
	}
	return holders, nil
}

func holds(p *process.Process, mountPoint string) bool {
	if cwd, err := p.Cwd(); err == nil && IsUnder(cwd, mountPoint) {
		return true
	}
	if exe, err := p.Exe(); err == nil && IsUnder(exe, mountPoint) {
		return true
	}
	files, err := p.OpenFiles()
	if err != nil {
		return false
	}
	for _, f := range files {
		if IsUnder(f.Path, mountPoint) {
			return true
		}
	}
	return false
}

// Kill sends SIGKILL to every process using the filesystem at mountPoint.
// fuser does the job when installed; exit status 1 only means nobody was
// using it. Without fuser the processes found by List are killed directly.
func (m *HolderManager) Kill(mountPoint string) error {
	_, err := system.RunWith(m.runner, "fuser", "-km", mountPoint)
	switch code := system.ExitCode(err); {
	case err == nil, code == 1:
		return nil
	case code > 1:
		return fmt.Errorf("failed to kill holders of %s: %w", mountPoint, err)
	}

	holders, err := m.List(mountPoint)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, h := range holders {
		p, err := process.NewProcess(h.PID)
		if err != nil {
			// already gone
			continue
		}
		if err := p.Kill(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kill %d (%s): %w", h.PID, h.Name, err))
		}
	}
	return result.ErrorOrNil()
}
