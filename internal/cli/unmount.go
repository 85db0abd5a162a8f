package cli

import (
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/volume"
	"github.com/spf13/cobra"
)

// UnmountCommand handles volume unmounting
type UnmountCommand struct {
	ctx       *GlobalContext
	try       bool
	force     bool
	noScripts bool
	volume    string
	shutdown  bool
	reboot    bool
}

// NewUnmountCommand creates the umount command
func NewUnmountCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &UnmountCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "umount [force]",
		Short: "Unmount and unmap the decrypted volumes",
		Long: `Sync, run the unmount hook scripts and unmap every decrypted volume.

With force, a volume that stays busy is torn down step by step: swap
files on it are turned off, NFS exports and the configured services are
stopped, processes holding it are killed and it is remounted read-only
before the unmap is retried. Exports and services are restored after.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"force"},
		RunE:      cmd.Run,
	}

	cmd.addFlags(cobraCmd)
	cobraCmd.Flags().BoolVarP(&cmd.force, "force", "f", false, "Escalate when a volume stays busy")

	return cobraCmd
}

// NewTryUnmountCommand creates the try-umount command
func NewTryUnmountCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &UnmountCommand{ctx: ctx, try: true}

	cobraCmd := &cobra.Command{
		Use:   "try-umount",
		Short: "Unmount, forcing only what stays busy",
		Long: `Run a plain unmount first. Volumes that are still mapped afterwards
are unmounted again with force.`,
		Args: cobra.NoArgs,
		RunE: cmd.Run,
	}

	cmd.addFlags(cobraCmd)

	return cobraCmd
}

func (c *UnmountCommand) addFlags(cobraCmd *cobra.Command) {
	addVolumeFlags(cobraCmd.Flags(), &c.volume, &c.noScripts)
	cobraCmd.Flags().BoolVarP(&c.shutdown, "shutdown", "S", false, "Power off when done")
	cobraCmd.Flags().BoolVarP(&c.reboot, "reboot", "R", false, "Reboot when done")
	cobraCmd.MarkFlagsMutuallyExclusive("shutdown", "reboot")
}

// Run executes the umount command
func (c *UnmountCommand) Run(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		c.force = true
	}

	rt, err := c.ctx.prepare(false, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := checkVolume(rt.cfg, c.volume); err != nil {
		return err
	}

	req := volume.DismountRequest{
		Force:    c.force,
		Scripts:  !c.noScripts,
		Volume:   c.volume,
		Shutdown: c.shutdown,
		Reboot:   c.reboot,
	}

	rt.session.Begin()
	var result *volume.DismountResult
	if c.try {
		result, err = rt.orch.TryDismount(req)
	} else {
		result, err = rt.orch.Dismount(req)
	}
	if err != nil {
		return Exit(2, err)
	}

	if !result.Clean() {
		return Exit(2, fmt.Errorf("still mapped: %s", strings.Join(result.Remaining, ", ")))
	}
	if len(result.Targeted) > 0 {
		c.ctx.Logger.Success("Unmounted: %s", strings.Join(result.Targeted, ", "))
	}
	return nil
}
