package host

import (
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/system"
)

// ExportManager toggles the NFS export table
type ExportManager struct {
	runner system.Runner
}

// NewExportManager creates a new export manager
func NewExportManager(runner system.Runner) *ExportManager {
	return &ExportManager{
		runner: runner,
	}
}

// Active reports whether anything is currently exported
func (m *ExportManager) Active() bool {
	out, err := system.RunWith(m.runner, "exportfs", "-s")
	return err == nil && strings.TrimSpace(out) != ""
}

// UnexportAll withdraws every export
func (m *ExportManager) UnexportAll() error {
	if _, err := system.RunWith(m.runner, "exportfs", "-ua"); err != nil {
		return fmt.Errorf("failed to stop NFS exports: %w", err)
	}
	return nil
}

// Reexport restores exports from /etc/exports
func (m *ExportManager) Reexport() error {
	if _, err := system.RunWith(m.runner, "exportfs", "-ra"); err != nil {
		return fmt.Errorf("failed to restore NFS exports: %w", err)
	}
	return nil
}
