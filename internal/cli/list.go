package cli

import (
	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/nace/vcmounter/internal/volume"
	"github.com/spf13/cobra"
)

// ListCommand prints the configured volumes
type ListCommand struct {
	ctx *GlobalContext
}

// NewListCommand creates the list command
func NewListCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &ListCommand{ctx: ctx}

	return &cobra.Command{
		Use:   "list",
		Short: "List the configured volumes",
		Long:  `List the volumes of the configuration file. Needs no privileges.`,
		Args:  cobra.NoArgs,
		RunE:  cmd.Run,
	}
}

// Run executes the list command
func (c *ListCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := c.ctx.LoadConfig()
	if err != nil {
		return err
	}

	table := ui.NewTable("NAME", "DEVICE", "MOUNT POINT")
	table.Out = c.ctx.Out
	for _, v := range cfg.Volumes {
		table.AddRow(v.Name, v.Device, v.MountPoint)
	}
	table.Print()
	return nil
}

// StatusCommand probes every configured volume
type StatusCommand struct {
	ctx    *GlobalContext
	volume string
	json   bool
}

// VolumeStatus is one row of the status report
type VolumeStatus struct {
	Name       string                 `json:"name"`
	State      string                 `json:"state"`
	MountPoint string                 `json:"mount_point"`
	Device     *volume.ResolvedDevice `json:"device,omitempty"`
	volume.Status
}

// NewStatusCommand creates the status command
func NewStatusCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &StatusCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the configured volumes",
		Long:  `Show whether each volume is absent, present, decrypted (mapped) or mounted.`,
		Args:  cobra.NoArgs,
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.volume, "volume", "", "Only show the named volume")
	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the status command
func (c *StatusCommand) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.ctx.prepare(false, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := checkVolume(rt.cfg, c.volume); err != nil {
		return err
	}

	rows := buildStatus(rt.cfg.Volumes, rt.orch.Targets(), rt.orch.Statuses(c.volume), c.volume)
	if c.json {
		return ui.PrintJSON(c.ctx.Out, rows)
	}

	table := ui.NewTable("NAME", "STATE", "VIRTUAL DEVICE", "MOUNT POINT")
	table.Out = c.ctx.Out
	for _, r := range rows {
		vd := r.VirtualDevice
		if vd == "" {
			vd = "-"
		}
		table.AddRow(r.Name, r.State, vd, r.MountPoint)
	}
	table.Print()
	return nil
}

// buildStatus reports every configured volume in configuration order.
// Volumes that did not resolve at startup are ABSENT.
func buildStatus(volumes []config.Volume, targets []volume.Target, statuses map[string]volume.Status, only string) []VolumeStatus {
	resolved := make(map[string]volume.ResolvedDevice, len(targets))
	for _, t := range targets {
		resolved[t.Name()] = t.Device
	}

	rows := make([]VolumeStatus, 0, len(volumes))
	for _, v := range volumes {
		if only != "" && v.Name != only {
			continue
		}
		row := VolumeStatus{Name: v.Name, MountPoint: v.MountPoint}
		if dev, ok := resolved[v.Name]; ok {
			dev := dev
			row.Device = &dev
			row.Status = statuses[v.Name]
		}
		row.State = row.Status.State().String()
		rows = append(rows, row)
	}
	return rows
}
