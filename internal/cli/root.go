package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var Version = "0.1.0"

// NewRootCmd builds the command tree around a. Flags and PORTSCAN_*
// environment variables override the config file.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "portscan",
		Short:         "Console client for the port scanner web API",
		Long:          "Launch scans on a port scanner server, follow their progress and browse the findings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "config.yaml", "Path to config")
	flags.String("server", "", "Scanner web API base URL")
	flags.String("db", "", "Path to the local credential store")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Int("watchdog-seconds", 0, "Seconds without progress before a scan is reported stuck")
	flags.Int("page-size", 0, "Findings per page")

	v := a.viper
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("watchdog_seconds", flags.Lookup("watchdog-seconds"))
	_ = v.BindPFlag("page_size", flags.Lookup("page-size"))

	v.SetEnvPrefix("PORTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newResultsCmd(a))
	root.AddCommand(newRunsCmd(a))
	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newCancelCmd(a))
	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))

	return root
}

// Execute runs the console with os.Args and returns the process exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

func Run(args []string, stdout, stderr io.Writer) int {
	a := NewApp(stdout, stderr)
	defer a.Close()

	root := NewRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

// reportedError has already been shown to the user as a notification.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
