package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/host"
	"github.com/nace/vcmounter/internal/power"
	"github.com/nace/vcmounter/internal/system"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/nace/vcmounter/internal/volume"
	"github.com/spf13/pflag"
)

// GlobalContext holds shared resources for all commands
type GlobalContext struct {
	Executor   *system.Executor
	Logger     *ui.Logger
	ConfigPath string
	PromptMode string
	Out        io.Writer
}

// NewGlobalContext creates a new global context
func NewGlobalContext(verbose, quiet, noColor, debug bool) *GlobalContext {
	return &GlobalContext{
		Executor:   system.NewExecutor(debug),
		Logger:     ui.NewLogger(verbose, quiet, noColor),
		PromptMode: ui.PromptAuto,
		Out:        os.Stdout,
	}
}

// LoadConfig reads the configuration file. Every failure is a
// configuration error.
func (ctx *GlobalContext) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		return nil, Exit(1, err)
	}
	ctx.Logger.Debug("Using configuration %s", cfg.Path)
	return cfg, nil
}

// requiredCommands lists what must be installed for a volume command.
// fsck is only needed when filesystems get checked.
func requiredCommands(check bool) []string {
	if check {
		return []string{"mount", "fsck"}
	}
	return []string{"mount"}
}

// optionalCommands only serve the forced teardown and spindown
var optionalCommands = []string{"swapon", "exportfs", "systemctl", "fuser", "losetup", "hdparm", "shutdown"}

// CheckDependencies checks for required system commands
func (ctx *GlobalContext) CheckDependencies(check bool) error {
	if err := ctx.Executor.CheckDependencies(requiredCommands(check)); err != nil {
		return Exit(1, err)
	}
	for _, dep := range optionalCommands {
		if !ctx.Executor.CommandExists(dep) {
			ctx.Logger.Debug("%s not found, related steps will fail softly", dep)
		}
	}
	return nil
}

// runtime is everything a volume command needs for one run
type runtime struct {
	cfg     *config.Config
	session *volume.Session
	orch    *volume.Orchestrator
}

// Close restores the CPU governor and destroys the credentials
func (rt *runtime) Close() {
	rt.session.Close()
}

// prepare checks privileges and configuration, resolves the devices and
// wires the orchestrator to the host. tweak adjusts the options built from
// the configuration. The caller must Close the result.
func (ctx *GlobalContext) prepare(check bool, tweak func(*volume.Options)) (*runtime, error) {
	if err := system.RequireRoot(); err != nil {
		return nil, Exit(1, err)
	}

	cfg, err := ctx.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := ctx.CheckDependencies(check); err != nil {
		return nil, err
	}

	system.IgnoreInterrupt()

	scratch, err := system.ScratchDir()
	if err != nil {
		return nil, Exit(2, err)
	}
	targets := volume.NewResolver(scratch).ResolveAll(cfg.Volumes, ctx.Logger)

	// relative paths are resolved by now
	if err := system.EnterSafeDir(); err != nil {
		return nil, Exit(2, err)
	}

	prompter, err := ui.NewPrompter(ctx.PromptMode, ctx.Executor)
	if err != nil {
		return nil, Exit(1, err)
	}

	session := volume.NewSession(power.NewGovernor(cfg.CPUGovernor), ctx.Logger)

	opts := volume.Options{
		MountOptions:     cfg.MountOptions,
		MountScript:      cfg.MountScript,
		UmountScript:     cfg.UmountScript,
		Spindown:         cfg.Spindown,
		StopServices:     cfg.StopServices,
		PresetPIM:        cfg.PIM,
		PresetHash:       cfg.Hash,
		PresetEncryption: cfg.Encryption,
		SelectHash:       cfg.SelectHash,
		SelectEncryption: cfg.SelectEncryption,
		SessionID:        session.ID,
	}
	if tweak != nil {
		tweak(&opts)
	}

	runner := ctx.Executor
	eng := engine.NewVeraCrypt(runner, cfg.App, cfg.User)
	mounter := host.NewMountManager(runner)

	orch := volume.New(volume.Deps{
		Engine:   eng,
		Mounter:  mounter,
		Teardown: host.NewTeardown(runner),
		Checker:  host.NewFilesystemChecker(runner),
		Disks:    host.NewDiskManager(runner),
		Scripts:  host.NewScriptRunner(runner),
		Power:    host.NewPowerManager(runner),
		Prompter: prompter,
		Probe:    volume.NewProbe(eng, mounter, host.NewDeviceMapper(), cfg.SettleDelay),
	}, targets, session.Credentials, opts, ctx.Logger)
	orch.SetOutput(ctx.Out)

	return &runtime{cfg: cfg, session: session, orch: orch}, nil
}

// checkVolume rejects a --volume filter naming no configured volume
func checkVolume(cfg *config.Config, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := cfg.Volume(name); !ok {
		return Exit(1, fmt.Errorf("unknown volume %q", name))
	}
	return nil
}

// addVolumeFlags registers the flags shared by every volume command
func addVolumeFlags(fs *pflag.FlagSet, volumeName *string, noScripts *bool) {
	fs.StringVar(volumeName, "volume", "", "Only act on the named volume")
	fs.BoolVarP(noScripts, "no-scripts", "n", false, "Do not run the volume hook scripts")
}
