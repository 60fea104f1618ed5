package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"appraisal/internal/platform/config"
	"appraisal/internal/platform/output"
)

// env holds dependencies shared by the subcommands of one invocation.
type env struct {
	ui         *output.UI
	configFile string
	verbose    bool
}

func (e *env) config() (config.Config, error) {
	file := e.configFile
	if file == "" {
		file = os.Getenv("APP_CONFIG_FILE")
	}
	cfg, err := config.LoadWith(viper.New(), file)
	if err != nil {
		return config.Config{}, err
	}
	if e.verbose {
		e.ui.Info("store %s, directory %s", cfg.StoreDriver, directorySource(cfg))
	}
	return cfg, nil
}

func directorySource(cfg config.Config) string {
	if cfg.DirectoryFile != "" {
		return cfg.DirectoryFile
	}
	return cfg.DirectoryURL
}

// NewRootCmd builds the appraisalctl command tree writing to ui.
func NewRootCmd(ui *output.UI) *cobra.Command {
	e := &env{ui: ui}
	root := &cobra.Command{
		Use:   "appraisalctl",
		Short: "Operate the appraisal review service",
		Long: `appraisalctl runs operator tasks against the appraisal store:
database migrations, development tokens, directory lookups,
and read-only inspection and PDF export of appraisals.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	root.SetOut(ui.Out)
	root.SetErr(ui.ErrOut)
	root.PersistentFlags().StringVar(&e.configFile, "config", "", "Config file (default $APP_CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newMigrateCmd(e),
		newTokenCmd(e),
		newShowCmd(e),
		newExportCmd(e),
		newDirectoryCmd(e),
	)
	return root
}

// Execute is the entry point called from main.
func Execute() {
	ui := output.New()
	if err := NewRootCmd(ui).Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func requireArg(args []string, name string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return args[0], nil
}
