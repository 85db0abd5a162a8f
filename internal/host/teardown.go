package host

import (
	"github.com/nace/vcmounter/internal/system"
)

// Teardown bundles the primitives used by the forced unmount sequence
type Teardown struct {
	Swap     *SwapManager
	Exports  *ExportManager
	Services *ServiceManager
	Holders  *HolderManager
	Loop     *LoopManager
}

// NewTeardown creates the teardown primitives on top of runner
func NewTeardown(runner system.Runner) *Teardown {
	return &Teardown{
		Swap:     NewSwapManager(runner),
		Exports:  NewExportManager(runner),
		Services: NewServiceManager(runner),
		Holders:  NewHolderManager(runner),
		Loop:     NewLoopManager(runner),
	}
}

// The methods below are the forced-unmount steps, one per primitive.

func (t *Teardown) SwapOffUnder(mountPoint string) error { return t.Swap.OffUnder(mountPoint) }
func (t *Teardown) ExportsActive() bool { return t.Exports.Active() }
func (t *Teardown) UnexportAll() error { return t.Exports.UnexportAll() }
func (t *Teardown) Reexport() error { return t.Exports.Reexport() }
func (t *Teardown) ServiceActive(unit string) bool { return t.Services.Active(unit) }
func (t *Teardown) StopService(unit string) error { return t.Services.Stop(unit) }
func (t *Teardown) StartService(unit string) error { return t.Services.Start(unit) }
func (t *Teardown) KillHolders(mountPoint string) error { return t.Holders.Kill(mountPoint) }
func (t *Teardown) DetachLoop(device string) error { return t.Loop.Detach(device) }
