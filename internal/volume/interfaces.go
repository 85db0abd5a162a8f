package volume

import (
	"github.com/nace/vcmounter/internal/engine"
)

// Engine maps and unmaps encrypted volumes
type Engine interface {
	Map(req engine.MapRequest) error
	Properties(device string) (engine.Properties, error)
	Dismount(device string, force bool) error
	DismountAll(force bool) error
	List() (string, error)
}

// Mounter attaches filesystems and reads the mount table
type Mounter interface {
	Mount(device, mountPoint string, options []string) error
	RemountReadOnly(device string) error
	IsMounted(path string) bool
}

// Teardown holds the escalation primitives of a forced unmount
type Teardown interface {
	SwapOffUnder(mountPoint string) error
	ExportsActive() bool
	UnexportAll() error
	Reexport() error
	ServiceActive(unit string) bool
	StopService(unit string) error
	StartService(unit string) error
	KillHolders(mountPoint string) error
	DetachLoop(device string) error
}

// FilesystemChecker checks several devices in one batched call
type FilesystemChecker interface {
	Check(devices []string) error
}

// DiskControl flushes writes and powers disks down
type DiskControl interface {
	Sync()
	SpinDown(device string) error
}

// MapperInspector confirms a device-mapper target is live
type MapperInspector interface {
	Exists(device string) bool
}

// Governor switches the CPU governor for the duration of a session
type Governor interface {
	SetMax() error
	Restore() error
}

// Prompter asks the operator. Replies are fresh slices the caller zeroes.
type Prompter interface {
	Ask(prompt string) ([]byte, error)
	Pause(message string) error
}

// ScriptRunner runs per-volume hook scripts
type ScriptRunner interface {
	Run(path string, env []string) error
}

// PowerControl halts or reboots the host
type PowerControl interface {
	Shutdown() error
	Reboot() error
}
