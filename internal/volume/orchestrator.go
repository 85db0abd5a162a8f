// Package volume drives encrypted volumes through their lifecycle:
// present, mapped (decrypted), mounted, and back down again.
package volume

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/ui"
)

// Options are the static settings of an orchestrator
type Options struct {
	MountOptions     config.MountOptionList
	MountScript      string
	UmountScript     string
	Spindown         bool
	StopServices     []string
	PresetPIM        string
	PresetHash       string
	PresetEncryption string
	SelectHash       bool
	SelectEncryption bool
	SessionID        string
}

// Deps are the collaborators of an orchestrator
type Deps struct {
	Engine   Engine
	Mounter  Mounter
	Teardown Teardown
	Checker  FilesystemChecker
	Disks    DiskControl
	Scripts  ScriptRunner
	Power    PowerControl
	Prompter Prompter
	Probe    *Probe
}

// Orchestrator runs the mount and unmount flows over the resolved targets,
// one volume at a time, in configuration order
type Orchestrator struct {
	engine   Engine
	mounter  Mounter
	teardown Teardown
	checker  FilesystemChecker
	disks    DiskControl
	scripts  ScriptRunner
	power    PowerControl
	prompter Prompter
	probe    *Probe

	targets []Target
	creds   *Credentials
	opts    Options
	log     *ui.Logger
	out     io.Writer
	sleep   func(time.Duration)
}

// New creates an orchestrator. creds is borrowed; its owner wipes it.
func New(deps Deps, targets []Target, creds *Credentials, opts Options, log *ui.Logger) *Orchestrator {
	return &Orchestrator{
		engine:   deps.Engine,
		mounter:  deps.Mounter,
		teardown: deps.Teardown,
		checker:  deps.Checker,
		disks:    deps.Disks,
		scripts:  deps.Scripts,
		power:    deps.Power,
		prompter: deps.Prompter,
		probe:    deps.Probe,
		targets:  targets,
		creds:    creds,
		opts:     opts,
		log:      log,
		out:      os.Stdout,
		sleep:    time.Sleep,
	}
}

// SetOutput redirects the per-volume progress markers
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Targets returns the resolved targets
func (o *Orchestrator) Targets() []Target {
	return o.targets
}

// targetState pairs a target with a fresh observation
type targetState struct {
	Target
	Status
}

// selectTargets applies the optional single-volume filter
func (o *Orchestrator) selectTargets(name string) []Target {
	if name == "" {
		return o.targets
	}
	for _, t := range o.targets {
		if t.Name() == name {
			return []Target{t}
		}
	}
	return nil
}

func (o *Orchestrator) observe(targets []Target) []targetState {
	states := make([]targetState, len(targets))
	for i, t := range targets {
		states[i] = targetState{Target: t, Status: o.probe.Status(t)}
	}
	return states
}

// Statuses probes every target, optionally filtered to one volume
func (o *Orchestrator) Statuses(name string) map[string]Status {
	out := make(map[string]Status)
	for _, st := range o.observe(o.selectTargets(name)) {
		out[st.Name()] = st.Status
	}
	return out
}

func (o *Orchestrator) mapRequest(t Target) engine.MapRequest {
	return engine.MapRequest{
		Device:         t.Device.CachedLinkPath,
		MountPoint:     t.MountPoint(),
		NoKernelCrypto: t.Device.NoKernelCrypto,
		Hash:           o.creds.Hash(),
		Encryption:     o.creds.Cipher(),
		Password:       o.creds.Password(),
		PIM:            o.creds.PIM(),
	}
}

// PrintListing shows what the engine currently manages
func (o *Orchestrator) PrintListing() {
	listing, err := o.engine.List()
	if err != nil {
		o.log.Warning("%v", err)
		return
	}
	if listing == "" {
		listing = "No volumes mapped."
	}
	fmt.Fprintf(o.out, "Managed volumes:\n%s\n", listing)
}
