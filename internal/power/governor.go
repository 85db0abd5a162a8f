// Package power switches the CPU frequency governor around CPU bound
// cipher work.
package power

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SysfsRoot is the default cpufreq location
const SysfsRoot = "/sys/devices/system/cpu"

const (
	// Performance is the governor set while mapping
	Performance = "performance"
	// Fallback is restored when the current governor cannot be read
	Fallback = "ondemand"
)

// hardwareDrivers manage frequency themselves; switching governors is pointless
var hardwareDrivers = map[string]bool{
	"intel_pstate":   true,
	"amd-pstate-epp": true,
}

// Governor saves and restores the cpufreq scaling governor
type Governor struct {
	root      string
	preferred string
	saved     string
}

// NewGovernor creates a governor working on the real sysfs. preferred,
// when set, is restored instead of the value read at SetMax.
func NewGovernor(preferred string) *Governor {
	return NewGovernorAt(SysfsRoot, preferred)
}

// NewGovernorAt creates a governor rooted at root
func NewGovernorAt(root, preferred string) *Governor {
	return &Governor{
		root:      root,
		preferred: strings.TrimSpace(preferred),
	}
}

// Driver returns the cpu0 scaling driver, empty without cpufreq
func (g *Governor) Driver() string {
	return g.read("cpu0/cpufreq/scaling_driver")
}

// Current returns the cpu0 scaling governor
func (g *Governor) Current() string {
	return g.read("cpu0/cpufreq/scaling_governor")
}

// Managed reports whether governor switching applies on this machine
func (g *Governor) Managed() bool {
	if _, err := os.Stat(filepath.Join(g.root, "cpu0/cpufreq/scaling_governor")); err != nil {
		return false
	}
	return !hardwareDrivers[g.Driver()]
}

// Saved returns the value Restore will write, empty when nothing was saved
func (g *Governor) Saved() string {
	return g.saved
}

// SetMax saves the current governor and switches every core to
// performance. On hardware managed platforms it does nothing.
func (g *Governor) SetMax() error {
	if !g.Managed() {
		return nil
	}

	saved := g.preferred
	if saved == "" {
		saved = g.Current()
	}
	if saved == "" {
		saved = Fallback
	}
	g.saved = saved

	return g.writeAll(Performance)
}

// Restore writes the saved governor back. It does nothing when SetMax
// saved nothing, and only runs once.
func (g *Governor) Restore() error {
	if g.saved == "" {
		return nil
	}
	value := g.saved
	g.saved = ""
	return g.writeAll(value)
}

func (g *Governor) read(rel string) string {
	data, err := os.ReadFile(filepath.Join(g.root, rel))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (g *Governor) writeAll(value string) error {
	paths, err := filepath.Glob(filepath.Join(g.root, "cpu[0-9]*", "cpufreq", "scaling_governor"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.WriteFile(p, []byte(value+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to set governor %s: %w", value, err)
		}
	}
	return nil
}
