package volume

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nace/vcmounter/internal/system"
)

// ErrIntegrity is returned when the pre-mount filesystem check fails
var ErrIntegrity = errors.New("filesystem check failed")

// ScriptDelay gives a fresh mount a moment before its hook runs
const ScriptDelay = time.Second

// MountRequest selects how MountAll runs
type MountRequest struct {
	Check             bool   // fsck mapped volumes before mounting
	ReadOnly          bool   // add "ro" to the mount options
	RetainCredentials bool   // keep the secrets after convergence
	Scripts           bool   // run the mount hook of each volume
	Volume            string // only this volume when set
}

// MountResult reports what MountAll did
type MountResult struct {
	Aborted  bool
	Attempts int
	Mounted  []string
	Failed   []string
}

// NothingToDo reports whether every selected volume was already mounted
// or absent
func (r *MountResult) NothingToDo() bool {
	return !r.Aborted && r.Attempts == 0
}

// MountAll maps and mounts every present, unmounted volume. Partial
// failure wipes the credentials and asks again, without bound, until all
// of them are mounted or the operator aborts.
func (o *Orchestrator) MountAll(req MountRequest) (*MountResult, error) {
	result := &MountResult{}

	// mapped volumes mount without secrets; a failure still prompts
	var mountable []Target
	needSecrets := false
	for _, st := range o.observe(o.selectTargets(req.Volume)) {
		if st.Present && !st.Mounted {
			mountable = append(mountable, st.Target)
			needSecrets = needSecrets || !st.Mapped
		}
	}
	if len(mountable) == 0 {
		o.log.Info("Nothing to mount")
		return result, nil
	}

	m := newMachine()
	for !m.phase.Terminal() {
		var err error
		switch m.phase {
		case Prompting:
			err = o.prompting(m, needSecrets || result.Attempts > 0)
		case Attempting:
			result.Attempts++
			err = o.attempting(m, mountable, req, result)
		default:
			err = fmt.Errorf("%w: stuck in %s", ErrIllegalTransition, m.phase)
		}
		if err != nil {
			o.creds.Wipe()
			return result, err
		}
	}

	if m.phase == Aborted {
		result.Aborted = true
	}
	return result, nil
}

func (o *Orchestrator) prompting(m *machine, ask bool) error {
	if ask && o.creds.Empty() {
		reply, err := o.acquire()
		if err != nil {
			return err
		}
		if reply == ReplyAbort {
			return m.to(Aborted)
		}
	}
	return m.to(Attempting)
}

func (o *Orchestrator) attempting(m *machine, mountable []Target, req MountRequest, result *MountResult) error {
	if err := o.attempt(mountable, req, result); err != nil {
		return err
	}

	result.Failed = result.Failed[:0]
	for _, st := range o.observe(mountable) {
		if !st.Mounted {
			result.Failed = append(result.Failed, st.Name())
		}
	}

	if len(result.Failed) == 0 {
		if !req.RetainCredentials {
			o.creds.Wipe()
		}
		return m.to(Converged)
	}

	o.creds.Wipe()
	o.log.Warning("Not mounted: %s", strings.Join(result.Failed, ", "))
	o.PrintListing()
	return m.to(Prompting)
}

// attempt runs one map pass, the optional check and one mount pass.
// Per-volume failures are logged and left for the convergence check.
func (o *Orchestrator) attempt(targets []Target, req MountRequest, result *MountResult) error {
	var toMap []Target
	for _, st := range o.observe(targets) {
		if !st.Mapped {
			toMap = append(toMap, st.Target)
		}
	}

	if len(toMap) > 0 {
		fmt.Fprint(o.out, "Decrypting volumes:")
		for _, t := range toMap {
			fmt.Fprintf(o.out, " %s", t.Name())
			if err := o.engine.Map(o.mapRequest(t)); err != nil {
				o.log.Warning("%s: %v", t.Name(), err)
			}
		}
		fmt.Fprintln(o.out, " done!")
	}

	var toMount []targetState
	for _, st := range o.observe(targets) {
		if st.Mapped && !st.Mounted {
			toMount = append(toMount, st)
		}
	}
	if len(toMount) == 0 {
		return nil
	}

	if req.Check {
		if errs := o.checkStates(toMount); len(errs) > 0 {
			fmt.Fprintln(o.out, "Errors checking decrypted volumes!")
			for _, e := range errs {
				o.log.Error("%v", e)
			}
			if err := o.prompter.Pause("Press ENTER to continue..."); err != nil {
				o.log.Debug("pause: %v", err)
			}
			o.PrintListing()
			return fmt.Errorf("%w: %v", ErrIntegrity, errs[0])
		}
	}

	options := o.opts.MountOptions
	if req.ReadOnly {
		options = options.With("ro")
	}

	fmt.Fprintln(o.out, "Mounting decrypted volumes:")
	for _, st := range toMount {
		fmt.Fprintf(o.out, " => %s: ", st.Name())

		err := o.mounter.Mount(st.VirtualDevice, st.MountPoint(), options)
		if err == nil && o.probe.Status(st.Target).Mounted {
			fmt.Fprint(o.out, "OK")
			result.Mounted = append(result.Mounted, st.Name())
			if req.Scripts {
				o.runHook(st, o.opts.MountScript, ", ")
			}
		} else {
			fmt.Fprint(o.out, "ERROR")
			if err != nil {
				o.log.Debug("%s: %v", st.Name(), err)
			}
		}
		fmt.Fprintln(o.out, ".")
	}
	return nil
}

// runHook runs <mount point>/<script> when it exists and is executable.
// Failure is reported and never fatal.
func (o *Orchestrator) runHook(st targetState, script, sep string) {
	if script == "" {
		return
	}
	path := st.MountPoint() + "/" + script
	if !system.IsExecutable(path) {
		return
	}

	fmt.Fprint(o.out, sep)
	o.sleep(ScriptDelay)
	if err := o.scripts.Run(path, o.scriptEnv(st)); err != nil {
		fmt.Fprint(o.out, "SCRIPT_ERROR")
		o.log.Debug("%s: %v", path, err)
		return
	}
	fmt.Fprint(o.out, "SCRIPT_OK")
}

// scriptEnv describes the volume to its hook scripts
func (o *Orchestrator) scriptEnv(st targetState) []string {
	return []string{
		"VCMNT_VOLUME=" + st.Name(),
		"VCMNT_DEVICE=" + st.Device.RawDevicePath,
		"VCMNT_VIRTUAL_DEVICE=" + st.VirtualDevice,
		"VCMNT_MOUNTPOINT=" + st.MountPoint(),
		"VCMNT_SESSION=" + o.opts.SessionID,
	}
}
