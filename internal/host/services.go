package host

import (
	"fmt"

	"github.com/nace/vcmounter/internal/system"
)

// ServiceManager starts and stops systemd units
type ServiceManager struct {
	runner system.Runner
}

// NewServiceManager creates a new service manager
func NewServiceManager(runner system.Runner) *ServiceManager {
	return &ServiceManager{
		runner: runner,
	}
}

// Active reports whether unit is running
func (m *ServiceManager) Active(unit string) bool {
	_, err := system.RunWith(m.runner, "systemctl", "is-active", "--quiet", unit)
	return err == nil
}

// Stop stops unit
func (m *ServiceManager) Stop(unit string) error {
	if _, err := system.RunWith(m.runner, "systemctl", "stop", unit); err != nil {
		return fmt.Errorf("failed to stop %s: %w", unit, err)
	}
	return nil
}

// Start starts unit
func (m *ServiceManager) Start(unit string) error {
	if _, err := system.RunWith(m.runner, "systemctl", "start", unit); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}
	return nil
}
