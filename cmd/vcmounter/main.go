package main

import (
	"os"
	"sync"

	"github.com/nace/vcmounter/internal/cli"
	"github.com/nace/vcmounter/internal/system"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	debug      bool
	configPath string
	promptMode string

	ctx  *cli.GlobalContext
	once sync.Once
)

func main() {
	os.Exit(run())
}

// run returns instead of exiting so that every deferred wipe and restore
// in the commands has happened before the process ends
func run() int {
	err := rootCmd.Execute()
	if err != nil && err.Error() != "" {
		ctx.Logger.Error("%v", err)
	}
	return cli.ExitCode(err)
}

var rootCmd = &cobra.Command{
	Use:   "vcmounter",
	Short: "vcmounter - VeraCrypt volume mounter",
	Long: `vcmounter decrypts and mounts a set of VeraCrypt volumes described in a
configuration file, and takes them down again, forcefully if needed.

The password and PIM are asked once for all volumes and wiped from memory
as soon as every volume is mounted.`,
	Version:       "0.1.0",
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// flags parsed fine; runtime errors should not print the usage
		cmd.SilenceUsage = true

		// Update context components with parsed flag values
		once.Do(func() {
			ctx.Executor = system.NewExecutor(debug)
			ctx.Logger = ui.NewLogger(verbose || debug, quiet, noColor)
			ctx.ConfigPath = configPath
			ctx.PromptMode = promptMode
		})
	},
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Configuration file (default: search $VCMNT_CFG, ., $HOME, /etc)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (suppress non-error output)")
	flags.BoolVar(&noColor, "no-color", false, "Disable color output")
	flags.BoolVar(&debug, "debug", false, "Debug mode (show commands)")
	flags.StringVar(&promptMode, "prompt", ui.PromptAuto, "Password prompt: auto, systemd, terminal or stdin")

	// Create initial context with default values
	// Will be updated in PersistentPreRun with parsed flag values
	ctx = cli.NewGlobalContext(false, false, false, false)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.Exit(1, err)
	})

	// Register commands
	rootCmd.AddCommand(cli.NewListCommand(ctx))
	rootCmd.AddCommand(cli.NewStatusCommand(ctx))
	rootCmd.AddCommand(cli.NewMountCommand(ctx))
	rootCmd.AddCommand(cli.NewFsckMountCommand(ctx))
	rootCmd.AddCommand(cli.NewFsckCommand(ctx))
	rootCmd.AddCommand(cli.NewUnmountCommand(ctx))
	rootCmd.AddCommand(cli.NewTryUnmountCommand(ctx))

	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
