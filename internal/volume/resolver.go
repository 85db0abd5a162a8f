package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/system"
	"github.com/nace/vcmounter/internal/ui"
)

// ErrDeviceNotFound is returned when a configured device does not exist
var ErrDeviceNotFound = errors.New("device not found")

// Default locations used by the resolver
const (
	ByIDDir     = "/dev/disk/by-id"
	SysBlockDir = "/sys/block"
	ModelFile   = "/sys/firmware/devicetree/base/model"
)

// ResolvedDevice is a configured volume bound to its raw device through a
// stable link in the scratch directory. Engine calls use the link so that
// the kernel renumbering a device mid-run does not break them.
type ResolvedDevice struct {
	VolumeName     string `json:"volume"`
	RawDevicePath  string `json:"raw_device"`
	CachedLinkPath string `json:"link"`
	IsSolidState   bool   `json:"solid_state"`

	// NoKernelCrypto disables kernel crypto so the engine never passes
	// TRIM through to the disk, which would leak the used-sector layout
	NoKernelCrypto bool `json:"no_kernel_crypto"`
}

// Target is a volume that was resolved at startup
type Target struct {
	Volume config.Volume
	Device ResolvedDevice
}

// Name returns the configured volume name
func (t Target) Name() string {
	return t.Volume.Name
}

// MountPoint returns the configured mount point
func (t Target) MountPoint() string {
	return t.Volume.MountPoint
}

// Resolver binds configured volumes to devices
type Resolver struct {
	ByIDDir     string
	ScratchDir  string
	SysBlockDir string
	ModelFile   string
}

// NewResolver creates a resolver linking into scratchDir
func NewResolver(scratchDir string) *Resolver {
	return &Resolver{
		ByIDDir:     ByIDDir,
		ScratchDir:  scratchDir,
		SysBlockDir: SysBlockDir,
		ModelFile:   ModelFile,
	}
}

// Resolve finds the raw device of v and (re)creates its cache link. The
// device is looked up as a /dev/disk/by-id name first, then as a path (a
// block device or a file container).
func (r *Resolver) Resolve(v config.Volume) (ResolvedDevice, error) {
	var raw, link string

	byID := filepath.Join(r.ByIDDir, v.Device)
	if !filepath.IsAbs(v.Device) && lexists(byID) {
		resolved, err := filepath.EvalSymlinks(byID)
		if err != nil {
			return ResolvedDevice{}, fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, v.Device, err)
		}
		raw = resolved
		link = filepath.Join(r.ScratchDir, v.Device)
	} else if system.Exists(v.Device) {
		abs, err := filepath.Abs(v.Device)
		if err != nil {
			return ResolvedDevice{}, err
		}
		raw = abs
		link = filepath.Join(r.ScratchDir, filepath.Base(v.Device))
	} else {
		return ResolvedDevice{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, v.Device)
	}

	if err := system.ForceSymlink(raw, link); err != nil {
		return ResolvedDevice{}, err
	}

	dev := ResolvedDevice{
		VolumeName:     v.Name,
		RawDevicePath:  raw,
		CachedLinkPath: link,
		IsSolidState:   r.SolidState(raw),
	}
	if v.NoKernelCrypto != nil {
		dev.NoKernelCrypto = *v.NoKernelCrypto
	} else {
		dev.NoKernelCrypto = dev.IsSolidState || r.OnRaspberryPi()
	}
	return dev, nil
}

// ResolveAll resolves volumes in configuration order. Volumes whose device
// or mount point is missing are logged and left out for the whole run.
func (r *Resolver) ResolveAll(volumes []config.Volume, log *ui.Logger) []Target {
	targets := make([]Target, 0, len(volumes))
	for _, v := range volumes {
		dev, err := r.Resolve(v)
		if err != nil {
			log.Warning("%s: skipped, %v", v.Name, err)
			continue
		}
		if !system.IsDir(v.MountPoint) {
			log.Warning("%s: skipped, mount point %s is not a directory", v.Name, v.MountPoint)
			continue
		}
		mp, err := filepath.Abs(v.MountPoint)
		if err != nil {
			log.Warning("%s: skipped, %v", v.Name, err)
			continue
		}
		v.MountPoint = mp
		log.Debug("%s: %s -> %s (ssd=%t, nokernelcrypto=%t)",
			v.Name, dev.CachedLinkPath, dev.RawDevicePath, dev.IsSolidState, dev.NoKernelCrypto)
		targets = append(targets, Target{Volume: v, Device: dev})
	}
	return targets
}

// SolidState reports whether raw sits on a non-rotational disk. File
// containers are not solid-state. An unreadable rotational flag counts
// as solid-state, which only costs kernel crypto offload.
func (r *Resolver) SolidState(raw string) bool {
	if !strings.HasPrefix(raw, "/dev/") {
		return false
	}
	data, err := os.ReadFile(filepath.Join(r.SysBlockDir, DiskName(filepath.Base(raw)), "queue", "rotational"))
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(data)) == "0"
}

// OnRaspberryPi reports whether the device tree names a Raspberry Pi
func (r *Resolver) OnRaspberryPi() bool {
	data, err := os.ReadFile(r.ModelFile)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "raspberry pi")
}

var (
	numberedDisk = regexp.MustCompile(`^((?:mmcblk|nvme\d+n|loop|md|nbd)\d+)(?:p\d+)?$`)
	letteredDisk = regexp.MustCompile(`^((?:[shv]d|xvd)[a-z]+)\d*$`)
)

// DiskName strips the partition suffix from a kernel device name:
// sdb1 -> sdb, mmcblk0p1 -> mmcblk0, nvme0n1p2 -> nvme0n1
func DiskName(dev string) string {
	if m := numberedDisk.FindStringSubmatch(dev); m != nil {
		return m[1]
	}
	if m := letteredDisk.FindStringSubmatch(dev); m != nil {
		return m[1]
	}
	return dev
}

func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
