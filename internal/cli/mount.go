package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/volume"
	"github.com/spf13/cobra"
)

// AbortMessage is printed when the operator aborts credential entry
const AbortMessage = "NOT mounting as requested"

// MountCommand handles volume mounting
type MountCommand struct {
	ctx              *GlobalContext
	check            bool
	readonly         bool
	noScripts        bool
	volume           string
	selectHash       bool
	selectEncryption bool
}

// NewMountCommand creates the mount command
func NewMountCommand(ctx *GlobalContext) *cobra.Command {
	return newMountCommand(ctx, false)
}

// NewFsckMountCommand creates the mount command that checks every
// filesystem before mounting it
func NewFsckMountCommand(ctx *GlobalContext) *cobra.Command {
	return newMountCommand(ctx, true)
}

func newMountCommand(ctx *GlobalContext, check bool) *cobra.Command {
	cmd := &MountCommand{ctx: ctx, check: check}

	cobraCmd := &cobra.Command{
		Use:   "mount",
		Short: "Decrypt and mount the configured volumes",
		Long: `Ask for the password and PIM, then map and mount every configured
volume that is present and not yet mounted. Wrong credentials are asked
for again until all volumes are mounted or you answer quit, exit, skip
or stop.`,
		Args: cobra.NoArgs,
		RunE: cmd.Run,
	}
	if check {
		cobraCmd.Use = "fsck+mount"
		cobraCmd.Short = "Decrypt, check and mount the configured volumes"
		cobraCmd.Long += `

Decrypted filesystems are checked before they are mounted. On errors
they stay decrypted but unmounted.`
	}

	addVolumeFlags(cobraCmd.Flags(), &cmd.volume, &cmd.noScripts)
	cobraCmd.Flags().BoolVarP(&cmd.readonly, "readonly", "r", false, "Mount as read-only")
	cobraCmd.Flags().BoolVar(&cmd.selectHash, "select-hash", false, "Ask for the hash algorithm")
	cobraCmd.Flags().BoolVar(&cmd.selectEncryption, "select-encryption", false, "Ask for the encryption algorithm")

	return cobraCmd
}

// Run executes the mount command
func (c *MountCommand) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.ctx.prepare(c.check, func(o *volume.Options) {
		o.SelectHash = o.SelectHash || c.selectHash
		o.SelectEncryption = o.SelectEncryption || c.selectEncryption
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := checkVolume(rt.cfg, c.volume); err != nil {
		return err
	}

	rt.session.Begin()
	result, err := rt.orch.MountAll(volume.MountRequest{
		Check:    c.check,
		ReadOnly: c.readonly,
		Scripts:  !c.noScripts,
		Volume:   c.volume,
	})
	if err != nil {
		if !errors.Is(err, volume.ErrIntegrity) {
			rt.orch.PrintListing()
		}
		return Exit(2, err)
	}

	if result.Aborted {
		fmt.Fprintln(c.ctx.Out, AbortMessage)
		return Exit(1, nil)
	}
	if len(result.Mounted) > 0 {
		c.ctx.Logger.Success("Mounted: %s", strings.Join(result.Mounted, ", "))
	}
	return nil
}
