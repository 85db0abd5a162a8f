package volume

import (
	"time"

	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/system"
)

// State is the lifecycle position of one volume
type State int

const (
	Absent State = iota
	Present
	Mapped
	Mounted
)

func (s State) String() string {
	switch s {
	case Present:
		return "PRESENT"
	case Mapped:
		return "MAPPED"
	case Mounted:
		return "MOUNTED"
	default:
		return "ABSENT"
	}
}

// Status is a point-in-time observation of a volume. It is never cached
// across orchestration steps.
type Status struct {
	Present       bool   `json:"present"`
	Mapped        bool   `json:"mapped"`
	Mounted       bool   `json:"mounted"`
	VirtualDevice string `json:"virtual_device,omitempty"`
	MountDir      string `json:"mount_dir,omitempty"`
	MapType       string `json:"map_type,omitempty"`
}

// State collapses the flags to the furthest lifecycle position
func (s Status) State() State {
	switch {
	case s.Mounted:
		return Mounted
	case s.Mapped:
		return Mapped
	case s.Present:
		return Present
	default:
		return Absent
	}
}

// Probe classifies volumes by asking the engine and the mount table
type Probe struct {
	engine  Engine
	mounter Mounter
	mapper  MapperInspector
	settle  time.Duration

	sleep  func(time.Duration)
	exists func(string) bool
}

// NewProbe creates a probe that waits settle before every query
func NewProbe(eng Engine, mounter Mounter, mapper MapperInspector, settle time.Duration) *Probe {
	return &Probe{
		engine:  eng,
		mounter: mounter,
		mapper:  mapper,
		settle:  settle,
		sleep:   time.Sleep,
		exists:  system.Exists,
	}
}

// Status observes t. It blocks for the settle delay first because the
// engine and udev apply changes asynchronously. A reply naming a virtual
// device that no longer exists reads as unmapped.
func (p *Probe) Status(t Target) Status {
	if p.settle > 0 {
		p.sleep(p.settle)
	}

	var st Status
	st.Present = p.exists(t.Device.CachedLinkPath) && system.IsDir(t.MountPoint())

	props, err := p.engine.Properties(t.Device.CachedLinkPath)
	if err != nil || !props.Mapped() {
		return st
	}

	vd := props.VirtualDevice
	if !p.exists(vd) {
		return st
	}
	if props.MapType() == engine.MapTypeMapper && p.mapper != nil && !p.mapper.Exists(vd) {
		return st
	}

	st.Mapped = true
	st.VirtualDevice = vd
	st.MountDir = props.MountDir
	st.MapType = props.MapType()
	st.Mounted = p.mounter.IsMounted(t.MountPoint())
	return st
}
