package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/t-voip/gwcheck/internal/config"
	"github.com/t-voip/gwcheck/internal/logging"
)

// Version is set at build time via -ldflags "-X github.com/t-voip/gwcheck/cmd.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gwcheck",
	Short: "Nagios-compatible health checks for SMS gateways",
	Long: `gwcheck runs one health check against the Diafaan message server, its
databases or a gateway host, prints a single status line and exits with the
Nagios plugin exit code (0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logging.Setup(os.Stderr, level)
		return nil
	},
}

const probeGroupID = "probes"

// exitCode is the plugin exit code of the last probe run.
var exitCode int

// Execute runs the command line.
func Execute(ctx context.Context) error {
	exitCode = 0
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode returns the exit code of the probe that ran.
func ExitCode() int {
	return exitCode
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: probeGroupID, Title: "Probes:"})
	rootCmd.PersistentFlags().StringP("config", "c", "", fmt.Sprintf("Settings file (default $GWCHECK_CONFIG or %s)", config.DefaultPath))
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(config.ResolvePath(path))
}
