package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FsckCommand checks decrypted volumes that are not mounted
type FsckCommand struct {
	ctx    *GlobalContext
	volume string
}

// NewFsckCommand creates the fsck command
func NewFsckCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &FsckCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "fsck",
		Short: "Check the decrypted, unmounted volumes",
		Long: `Run one filesystem check over every volume that is decrypted but
not mounted, typically after fsck+mount found errors. Mounted volumes
are skipped.`,
		Args: cobra.NoArgs,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.volume, "volume", "", "Only act on the named volume")

	return cobraCmd
}

// Run executes the fsck command
func (c *FsckCommand) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.ctx.prepare(true, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := checkVolume(rt.cfg, c.volume); err != nil {
		return err
	}

	rt.session.Begin()
	errs := rt.orch.Check(c.volume)
	if len(errs) > 0 {
		for _, e := range errs[1:] {
			c.ctx.Logger.Error("%v", e)
		}
		return Exit(2, fmt.Errorf("filesystem check failed: %w", errs[0]))
	}
	return nil
}
