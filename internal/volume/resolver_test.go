package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver lays out a fake /dev/disk/by-id, /sys/block and scratch
// directory under a temp dir
func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r := &Resolver{
		ByIDDir:     filepath.Join(root, "by-id"),
		ScratchDir:  filepath.Join(root, "scratch"),
		SysBlockDir: filepath.Join(root, "sys-block"),
		ModelFile:   filepath.Join(root, "model"),
	}
	for _, d := range []string{r.ByIDDir, r.ScratchDir, r.SysBlockDir} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	return r, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestResolve_ByID(t *testing.T) {
	r, root := newTestResolver(t)
	raw := filepath.Join(root, "sdb1")
	writeFile(t, raw, "")
	require.NoError(t, os.Symlink(raw, filepath.Join(r.ByIDDir, "usb-WD_1234-part1")))

	dev, err := r.Resolve(config.Volume{Name: "backup", Device: "usb-WD_1234-part1", MountPoint: root})
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(raw)
	require.NoError(t, err)
	assert.Equal(t, "backup", dev.VolumeName)
	assert.Equal(t, want, dev.RawDevicePath)
	assert.Equal(t, filepath.Join(r.ScratchDir, "usb-WD_1234-part1"), dev.CachedLinkPath)

	target, err := os.Readlink(dev.CachedLinkPath)
	require.NoError(t, err)
	assert.Equal(t, want, target)

	// not under /dev, so a file container: rotational, kernel crypto allowed
	assert.False(t, dev.IsSolidState)
	assert.False(t, dev.NoKernelCrypto)
}

func TestResolve_Path(t *testing.T) {
	r, root := newTestResolver(t)
	container := filepath.Join(root, "vault.hc")
	writeFile(t, container, "")

	dev, err := r.Resolve(config.Volume{Name: "vault", Device: container})
	require.NoError(t, err)
	assert.Equal(t, container, dev.RawDevicePath)
	assert.Equal(t, filepath.Join(r.ScratchDir, "vault.hc"), dev.CachedLinkPath)
}

func TestResolve_NotFound(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.Resolve(config.Volume{Name: "gone", Device: "usb-missing"})
	require.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = r.Resolve(config.Volume{Name: "gone", Device: "/dev/definitely-not-here"})
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestResolve_DanglingByIDLink(t *testing.T) {
	r, root := newTestResolver(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "unplugged"), filepath.Join(r.ByIDDir, "usb-old")))

	_, err := r.Resolve(config.Volume{Name: "old", Device: "usb-old"})
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestResolve_ReplacesStaleLink(t *testing.T) {
	r, root := newTestResolver(t)
	container := filepath.Join(root, "vault.hc")
	writeFile(t, container, "")
	link := filepath.Join(r.ScratchDir, "vault.hc")
	require.NoError(t, os.Symlink("/dev/sdz9", link))

	dev, err := r.Resolve(config.Volume{Name: "vault", Device: container})
	require.NoError(t, err)

	target, err := os.Readlink(dev.CachedLinkPath)
	require.NoError(t, err)
	assert.Equal(t, container, target)
}

func TestResolve_NoKernelCrypto(t *testing.T) {
	yes, no := true, false

	t.Run("raspberry pi", func(t *testing.T) {
		r, root := newTestResolver(t)
		writeFile(t, r.ModelFile, "Raspberry Pi 4 Model B Rev 1.4\x00")
		container := filepath.Join(root, "vault.hc")
		writeFile(t, container, "")

		dev, err := r.Resolve(config.Volume{Name: "vault", Device: container})
		require.NoError(t, err)
		assert.True(t, dev.NoKernelCrypto)
	})

	t.Run("override on", func(t *testing.T) {
		r, root := newTestResolver(t)
		container := filepath.Join(root, "vault.hc")
		writeFile(t, container, "")

		dev, err := r.Resolve(config.Volume{Name: "vault", Device: container, NoKernelCrypto: &yes})
		require.NoError(t, err)
		assert.True(t, dev.NoKernelCrypto)
	})

	t.Run("override off", func(t *testing.T) {
		r, root := newTestResolver(t)
		writeFile(t, r.ModelFile, "Raspberry Pi 3 Model B")
		container := filepath.Join(root, "vault.hc")
		writeFile(t, container, "")

		dev, err := r.Resolve(config.Volume{Name: "vault", Device: container, NoKernelCrypto: &no})
		require.NoError(t, err)
		assert.False(t, dev.NoKernelCrypto)
	})
}

func TestSolidState(t *testing.T) {
	r, _ := newTestResolver(t)
	writeFile(t, filepath.Join(r.SysBlockDir, "sdb", "queue", "rotational"), "1\n")
	writeFile(t, filepath.Join(r.SysBlockDir, "nvme0n1", "queue", "rotational"), "0\n")

	assert.False(t, r.SolidState("/dev/sdb1"))
	assert.True(t, r.SolidState("/dev/nvme0n1p2"))
	// unknown disk counts as solid-state
	assert.True(t, r.SolidState("/dev/sdq1"))
	assert.False(t, r.SolidState("/srv/vault.hc"))
}

func TestOnRaspberryPi(t *testing.T) {
	r, _ := newTestResolver(t)
	assert.False(t, r.OnRaspberryPi())

	writeFile(t, r.ModelFile, "Pine64 RockPro64")
	assert.False(t, r.OnRaspberryPi())

	writeFile(t, r.ModelFile, "Raspberry Pi 5 Model B")
	assert.True(t, r.OnRaspberryPi())
}

func TestDiskName(t *testing.T) {
	tests := map[string]string{
		"sdb1":      "sdb",
		"sdb":       "sdb",
		"sdaa12":    "sdaa",
		"vdc3":      "vdc",
		"xvda1":     "xvda",
		"mmcblk0p1": "mmcblk0",
		"mmcblk1":   "mmcblk1",
		"nvme0n1p2": "nvme0n1",
		"nvme1n1":   "nvme1n1",
		"loop3":     "loop3",
		"md127":     "md127",
		"dm-0":      "dm-0",
	}
	for in, want := range tests {
		assert.Equal(t, want, DiskName(in), in)
	}
}

func TestResolveAll_SkipsMissing(t *testing.T) {
	r, root := newTestResolver(t)
	good := filepath.Join(root, "good.hc")
	writeFile(t, good, "")
	noMP := filepath.Join(root, "nomp.hc")
	writeFile(t, noMP, "")
	mp := filepath.Join(root, "mnt")
	require.NoError(t, os.MkdirAll(mp, 0755))

	targets := r.ResolveAll([]config.Volume{
		{Name: "missing", Device: "usb-nothing", MountPoint: mp},
		{Name: "good", Device: good, MountPoint: mp},
		{Name: "nomp", Device: noMP, MountPoint: filepath.Join(root, "absent")},
	}, ui.NewDiscardLogger())

	require.Len(t, targets, 1)
	assert.Equal(t, "good", targets[0].Name())
	assert.Equal(t, mp, targets[0].MountPoint())
	assert.Equal(t, good, targets[0].Device.RawDevicePath)
}

func TestResolveAll_MakesMountPointAbsolute(t *testing.T) {
	r, root := newTestResolver(t)
	dev := filepath.Join(root, "vol.hc")
	writeFile(t, dev, "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mnt"), 0755))
	chdir(t, root)

	targets := r.ResolveAll([]config.Volume{
		{Name: "rel", Device: dev, MountPoint: "mnt"},
	}, ui.NewDiscardLogger())

	require.Len(t, targets, 1)
	assert.Equal(t, filepath.Join(root, "mnt"), targets[0].MountPoint())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24)
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
