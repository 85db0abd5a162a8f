package host

import (
	"fmt"

	"github.com/nace/vcmounter/internal/system"
)

// PowerManager halts or reboots the machine
type PowerManager struct {
	runner system.Runner
}

// NewPowerManager creates a new power manager
func NewPowerManager(runner system.Runner) *PowerManager {
	return &PowerManager{
		runner: runner,
	}
}

// Shutdown powers the machine off now
func (m *PowerManager) Shutdown() error {
	if _, err := system.RunWith(m.runner, "shutdown", "-h", "0"); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Reboot restarts the machine now
func (m *PowerManager) Reboot() error {
	if _, err := system.RunWith(m.runner, "shutdown", "-r", "0"); err != nil {
		return fmt.Errorf("failed to reboot: %w", err)
	}
	return nil
}
