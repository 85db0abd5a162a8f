package host

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nace/vcmounter/internal/system"
)

// SwapManager handles swap files living on encrypted volumes
type SwapManager struct {
	runner system.Runner
}

// NewSwapManager creates a new swap manager
func NewSwapManager(runner system.Runner) *SwapManager {
	return &SwapManager{
		runner: runner,
	}
}

// Files lists the active swap files (swap partitions are left out)
func (m *SwapManager) Files() ([]string, error) {
	out, err := system.RunWith(m.runner, "swapon", "--show=TYPE,NAME", "--noheadings", "--raw")
	if err != nil {
		return nil, fmt.Errorf("failed to list swap: %w", err)
	}
	return ParseSwapFiles(out), nil
}

// ParseSwapFiles extracts file names from "swapon --show=TYPE,NAME --raw"
func ParseSwapFiles(output string) []string {
	var files []string
	for _, row := range system.ParseColumns(output, false) {
		if len(row) < 2 || row[0] != "file" {
			continue
		}
		files = append(files, row[1])
	}
	return files
}

// OffUnder disables every swap file located below mountPoint
func (m *SwapManager) OffUnder(mountPoint string) error {
	files, err := m.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if !IsUnder(f, mountPoint) {
			continue
		}
		if _, err := system.RunWith(m.runner, "swapoff", f); err != nil {
			return fmt.Errorf("failed to disable swap file %s: %w", f, err)
		}
	}
	return nil
}

// IsUnder reports whether path is dir or lies below it
func IsUnder(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if dir == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, dir+"/")
}
