package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/t-voip/gwcheck/internal/config"
)

// DefaultCommandsFile is where Nagios Core looks for object definitions on
// most Linux packages.
const DefaultCommandsFile = "/etc/nagios/objects/gwcheck.cfg"

var commandDefinitions = `# Nagios command definitions for gwcheck {{.Version}}.
# Positional arguments map to $ARGn$ in order; the last $ARGn$ takes extra flags
# such as --warning 2 --critical 1.
{{range .Commands}}
define command {
    command_name    check_gw_{{.Name}}
    command_line    {{$.Executable}} {{.Subcommand}} --config {{$.Config}}{{range .Args}} {{.}}{{end}}
}
{{end}}`

type commandDef struct {
	Name       string
	Subcommand string
	Args       []string
}

type definitionsData struct {
	Version    string
	Executable string
	Config     string
	Commands   []commandDef
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Write Nagios command definitions for every probe",
	Long: `Write a Nagios object file defining one check_gw_<probe> command per
probe, pointing at this executable and settings file.

Use --output - to print the definitions instead of writing a file.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the Nagios command definitions",
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)

	installCmd.Flags().StringP("output", "o", DefaultCommandsFile, "Object file to write, or - for stdout")
	uninstallCmd.Flags().StringP("output", "o", DefaultCommandsFile, "Object file to remove")
}

func runInstall(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	configFlag, _ := cmd.Flags().GetString("config")

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	configPath, err := filepath.Abs(config.ResolvePath(configFlag))
	if err != nil {
		return fmt.Errorf("failed to resolve settings path: %w", err)
	}

	data := definitionsData{
		Version:    Version,
		Executable: executable,
		Config:     configPath,
		Commands:   probeCommands(),
	}

	if output == "-" {
		return writeDefinitions(cmd.OutOrStdout(), data)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := writeDefinitions(f, data); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d command definitions to %s\n", len(data.Commands), output)
	fmt.Fprintln(cmd.OutOrStdout(), "Reload Nagios to pick them up.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	if _, err := os.Stat(output); os.IsNotExist(err) {
		return fmt.Errorf("%s is not installed", output)
	}
	if err := os.Remove(output); err != nil {
		return fmt.Errorf("failed to remove %s: %w", output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", output)
	return nil
}

func writeDefinitions(w io.Writer, data definitionsData) error {
	tmpl, err := template.New("commands").Parse(commandDefinitions)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to write command definitions: %w", err)
	}
	return nil
}

// probeCommands derives one definition per probe subcommand from its usage
// line: each <placeholder> becomes the next $ARGn$.
func probeCommands() []commandDef {
	var defs []commandDef
	for _, c := range rootCmd.Commands() {
		if c.GroupID != probeGroupID {
			continue
		}
		var args []string
		for _, field := range strings.Fields(c.Use)[1:] {
			if strings.HasPrefix(field, "<") {
				args = append(args, fmt.Sprintf("$ARG%d$", len(args)+1))
			}
		}
		args = append(args, fmt.Sprintf("$ARG%d$", len(args)+1))

		defs = append(defs, commandDef{
			Name:       strings.ReplaceAll(c.Name(), "-", "_"),
			Subcommand: c.Name(),
			Args:       args,
		})
	}
	return defs
}
