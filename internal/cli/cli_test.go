package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/system"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/nace/vcmounter/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (*GlobalContext, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	ctx := NewGlobalContext(false, true, true, false)
	ctx.Logger = ui.NewDiscardLogger()
	ctx.Out = out
	return ctx, out
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New(`unknown command "frob"`)))
	assert.Equal(t, 2, ExitCode(Exit(2, volume.ErrIntegrity)))
	assert.Equal(t, 1, ExitCode(Exit(1, nil)))

	wrapped := Exit(1, system.ErrNotRoot)
	assert.ErrorIs(t, wrapped, system.ErrNotRoot)
	assert.Equal(t, system.ErrNotRoot.Error(), wrapped.Error())
	assert.Empty(t, Exit(1, nil).Error())
}

func TestListCommand(t *testing.T) {
	ctx, out := testContext(t)
	ctx.ConfigPath = writeConfig(t, `
app: /bin/sh
volumes:
  data: {dev: usb-WD_Elements-part1, mp: /mnt/data}
  photos: {dev: /srv/photos.hc, mp: /mnt/photos}
`)

	cmd := NewListCommand(ctx)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, ""+
		" NAME   | DEVICE                | MOUNT POINT\n"+
		"--------+-----------------------+-------------\n"+
		" data   | usb-WD_Elements-part1 | /mnt/data\n"+
		" photos | /srv/photos.hc        | /mnt/photos\n", out.String())
}

func TestListCommand_ConfigErrorExitsOne(t *testing.T) {
	ctx, _ := testContext(t)
	ctx.ConfigPath = writeConfig(t, "app: /bin/sh\nvolumes: {}\n")

	cmd := NewListCommand(ctx)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 1, ExitCode(err))
}

func TestUnmountCommand_Args(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown positional", []string{"now"}},
		{"too many positionals", []string{"force", "force"}},
		{"shutdown and reboot", []string{"--shutdown", "--reboot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext(t)
			cmd := NewUnmountCommand(ctx)
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, 1, ExitCode(err))
		})
	}
}

func TestMountCommands(t *testing.T) {
	ctx, _ := testContext(t)

	mount := NewMountCommand(ctx)
	assert.Equal(t, "mount", mount.Name())
	assert.NotNil(t, mount.Flags().Lookup("select-hash"))
	assert.NotNil(t, mount.Flags().ShorthandLookup("r"))
	assert.NotNil(t, mount.Flags().ShorthandLookup("n"))

	fsck := NewFsckMountCommand(ctx)
	assert.Equal(t, "fsck+mount", fsck.Name())
	assert.NotNil(t, fsck.Flags().Lookup("volume"))

	try := NewTryUnmountCommand(ctx)
	assert.Nil(t, try.Flags().Lookup("force"))
	assert.NotNil(t, try.Flags().ShorthandLookup("S"))
}

func TestFsckCommand(t *testing.T) {
	ctx, _ := testContext(t)
	cmd := NewFsckCommand(ctx)
	assert.Equal(t, "fsck", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("volume"))

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"now"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestCheckDependencies_FsckOnlyWhenChecking(t *testing.T) {
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "mount"), []byte("#!/bin/sh\n"), 0755))
	t.Setenv("PATH", bin)

	ctx, _ := testContext(t)
	assert.NoError(t, ctx.CheckDependencies(false))

	err := ctx.CheckDependencies(true)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, err.Error(), "fsck")
}

func TestBuildStatus(t *testing.T) {
	volumes := []config.Volume{
		{Name: "data", Device: "usb-a", MountPoint: "/mnt/data"},
		{Name: "gone", Device: "usb-b", MountPoint: "/mnt/gone"},
		{Name: "photos", Device: "usb-c", MountPoint: "/mnt/photos"},
	}
	targets := []volume.Target{
		{Volume: volumes[0], Device: volume.ResolvedDevice{VolumeName: "data", CachedLinkPath: "/run/shm/vc-mounter/usb-a"}},
		{Volume: volumes[2], Device: volume.ResolvedDevice{VolumeName: "photos", CachedLinkPath: "/run/shm/vc-mounter/usb-c"}},
	}
	statuses := map[string]volume.Status{
		"data":   {Present: true, Mapped: true, Mounted: true, VirtualDevice: "/dev/mapper/veracrypt1"},
		"photos": {Present: true},
	}

	rows := buildStatus(volumes, targets, statuses, "")
	require.Len(t, rows, 3)
	assert.Equal(t, "MOUNTED", rows[0].State)
	assert.Equal(t, "/dev/mapper/veracrypt1", rows[0].VirtualDevice)
	assert.Equal(t, "ABSENT", rows[1].State)
	assert.Nil(t, rows[1].Device)
	assert.Equal(t, "PRESENT", rows[2].State)
	assert.Equal(t, "/run/shm/vc-mounter/usb-c", rows[2].Device.CachedLinkPath)

	only := buildStatus(volumes, targets, statuses, "photos")
	require.Len(t, only, 1)
	assert.Equal(t, "photos", only[0].Name)
}

func TestBuildStatus_JSON(t *testing.T) {
	rows := buildStatus(
		[]config.Volume{{Name: "data", MountPoint: "/mnt/data"}},
		nil, nil, "")

	var buf bytes.Buffer
	require.NoError(t, ui.PrintJSON(&buf, rows))
	assert.Contains(t, buf.String(), `"name": "data"`)
	assert.Contains(t, buf.String(), `"state": "ABSENT"`)
	assert.NotContains(t, buf.String(), `"device"`)
}
