package volume

import (
	"fmt"
	"strings"
	"time"

	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/system"
)

// KillRetryDelay separates the two passes of killing holders
const KillRetryDelay = time.Second

// DismountRequest selects how Dismount runs
type DismountRequest struct {
	Force    bool   // escalate when the plain unmap fails
	Scripts  bool   // run the umount hook of mounted volumes
	Volume   string // only this volume when set
	Shutdown bool   // power off once done
	Reboot   bool   // reboot once done
}

// DismountResult reports what Dismount left behind
type DismountResult struct {
	Targeted  []string
	Remaining []string
}

// Clean reports whether no targeted volume is still mapped
func (r *DismountResult) Clean() bool {
	return len(r.Remaining) == 0
}

// Dismount unmaps the mapped volumes. Nothing here is fatal: every failure
// degrades to a volume listed in Remaining.
func (o *Orchestrator) Dismount(req DismountRequest) (*DismountResult, error) {
	result := &DismountResult{}

	var mapped []targetState
	for _, st := range o.observe(o.selectTargets(req.Volume)) {
		if st.Mapped {
			mapped = append(mapped, st)
			result.Targeted = append(result.Targeted, st.Name())
		}
	}
	if len(mapped) == 0 {
		o.log.Info("No mapped volumes found")
		o.powerAction(req)
		return result, nil
	}

	fmt.Fprintln(o.out, "Dismounting decrypted volumes: syncing...")
	o.disks.Sync()

	if req.Scripts {
		for _, st := range mapped {
			if !st.Mounted {
				continue
			}
			fmt.Fprintf(o.out, " => %s: ", st.Name())
			o.runHook(st, o.opts.UmountScript, "")
			fmt.Fprintln(o.out)
		}
	}

	if req.Force {
		for _, st := range mapped {
			fmt.Fprintf(o.out, " => %s: ", st.Name())
			err := o.engine.Dismount(st.Device.CachedLinkPath, false)
			if err == nil {
				fmt.Fprintln(o.out, "OK")
				continue
			}
			fmt.Fprintln(o.out, "BUSY")
			o.log.Debug("%s: %v", st.Name(), err)
			o.forceDismount(st)
		}
	} else {
		var err error
		if req.Volume == "" {
			err = o.engine.DismountAll(false)
		} else {
			err = o.engine.Dismount(mapped[0].Device.CachedLinkPath, false)
		}
		if err != nil {
			o.log.Warning("%v", err)
		}
	}

	for _, st := range o.observe(targetsOf(mapped)) {
		if st.Mapped {
			fmt.Fprintf(o.out, " => %s: STILL MAPPED\n", st.Name())
			result.Remaining = append(result.Remaining, st.Name())
			continue
		}
		if !req.Force {
			fmt.Fprintf(o.out, " => %s: OK\n", st.Name())
		}
		if o.opts.Spindown {
			if err := o.disks.SpinDown(st.Device.RawDevicePath); err != nil {
				o.log.Warning("%s: %v", st.Name(), err)
			}
		}
	}

	if !result.Clean() {
		o.log.Error("Still mapped: %s", strings.Join(result.Remaining, ", "))
	}
	o.PrintListing()

	o.powerAction(req)
	return result, nil
}

// TryDismount runs a plain dismount and escalates to a forced one for
// whatever is left
func (o *Orchestrator) TryDismount(req DismountRequest) (*DismountResult, error) {
	plain := req
	plain.Force = false
	plain.Shutdown = false
	plain.Reboot = false

	result, err := o.Dismount(plain)
	if err != nil || result.Clean() {
		if err == nil {
			o.powerAction(req)
		}
		return result, err
	}

	forced := req
	forced.Force = true
	// scripts already ran in the plain pass
	forced.Scripts = false
	return o.Dismount(forced)
}

// forceDismount escalates for one busy volume: swap off, stop exports and
// services, kill holders twice, remount read-only, then retry the plain
// unmap, the forced unmap and finally the loop detach. Exports and
// services are restored on the way out.
func (o *Orchestrator) forceDismount(st targetState) {
	fmt.Fprintln(o.out, "    => brute forcing dismount:")

	restore := system.NewCleanupStack()
	defer func() {
		if err := restore.Execute(); err != nil {
			o.log.Warning("restore after forced dismount: %v", err)
		}
	}()

	mp := st.MountPoint()
	if st.Mounted {
		o.step("swapoff files within volume")
		o.warn(o.teardown.SwapOffUnder(mp))

		if o.teardown.ExportsActive() {
			o.step("stopping NFS shares...")
			if err := o.teardown.UnexportAll(); err != nil {
				o.warn(err)
			}
			restore.Add(func() error {
				o.step("restarting NFS shares...")
				return o.teardown.Reexport()
			})
		}

		for _, unit := range o.opts.StopServices {
			unit := unit
			if !o.teardown.ServiceActive(unit) {
				continue
			}
			o.step("stopping " + unit + "...")
			if err := o.teardown.StopService(unit); err != nil {
				o.warn(err)
				continue
			}
			restore.Add(func() error {
				o.step("restarting " + unit + "...")
				return o.teardown.StartService(unit)
			})
		}

		o.step("killing open processes ----- first  try -----")
		o.warn(o.teardown.KillHolders(mp))
		o.sleep(KillRetryDelay)
		o.step("killing open processes ----- second try -----")
		o.warn(o.teardown.KillHolders(mp))

		o.step("remount read-only")
		o.disks.Sync()
		o.warn(o.mounter.RemountReadOnly(st.VirtualDevice))
	}

	o.step("retry dismount")
	link := st.Device.CachedLinkPath
	err := o.engine.Dismount(link, false)
	if err != nil {
		err = o.engine.Dismount(link, true)
	}
	if err != nil {
		o.warn(err)
		if st.MapType == engine.MapTypeLoop && o.probe.exists(st.VirtualDevice) {
			o.step("detaching loop device")
			o.warn(o.teardown.DetachLoop(st.VirtualDevice))
		}
	}
}

// powerAction halts or reboots when requested
func (o *Orchestrator) powerAction(req DismountRequest) {
	if !req.Shutdown && !req.Reboot {
		return
	}
	o.sleep(time.Second)
	var err error
	if req.Reboot {
		fmt.Fprintln(o.out, "Rebooting...")
		err = o.power.Reboot()
	} else {
		fmt.Fprintln(o.out, "Shutting down...")
		err = o.power.Shutdown()
	}
	if err != nil {
		o.log.Error("%v", err)
	}
}

func (o *Orchestrator) step(msg string) {
	fmt.Fprintf(o.out, "    - %s\n", msg)
}

func (o *Orchestrator) warn(err error) {
	if err != nil {
		o.log.Warning("%v", err)
	}
}

func targetsOf(states []targetState) []Target {
	out := make([]Target, len(states))
	for i, st := range states {
		out[i] = st.Target
	}
	return out
}
