package host

import (
	"github.com/nace/vcmounter/internal/system"
)

// ScriptRunner runs the per-volume mount and umount scripts
type ScriptRunner struct {
	runner system.Runner
}

// NewScriptRunner creates a new script runner
func NewScriptRunner(runner system.Runner) *ScriptRunner {
	return &ScriptRunner{
		runner: runner,
	}
}

// Run executes path directly (no shell) with env added to the environment
func (r *ScriptRunner) Run(path string, env []string) error {
	_, err := r.runner.Exec(system.Command{Name: path, Env: env})
	return err
}
