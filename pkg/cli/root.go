// Package cli implements the pipeterm command-line client for the lake
// query API.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Environment variables read by the client.
const (
	EnvHost   = "PIPETERM_HOST"
	EnvOutput = "PIPETERM_OUTPUT"
)

// options holds the resolved global flags shared by every command.
type options struct {
	host       string
	output     string
	profile    string
	configPath string

	format OutputFormat
	client *Client
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == string(OutputJSON) {
			errObj := map[string]any{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["error"] = apiErr.Detail
				errObj["http_status"] = apiErr.HTTPStatus
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pipeterm",
		Short:         "Query CSV data lakes over the pipeterm API",
		Long:          "Command-line client for the pipeterm lake query API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.host, "host", DefaultHost, "API host URL (env: "+EnvHost+")")
	pf.StringVarP(&opts.output, "output", "o", "", "output format: table, json or csv (default table on a terminal, json otherwise)")
	pf.StringVarP(&opts.profile, "profile", "p", "", "config profile to use")
	pf.StringVar(&opts.configPath, "config", ConfigPath(), "path to the profile file")

	rootCmd.AddCommand(newLakesCmd(opts))
	rootCmd.AddCommand(newFilesCmd(opts))
	rootCmd.AddCommand(newTablesCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// resolve applies flag > env > profile > default precedence for host and
// output, then builds the client.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := LoadUserConfig(o.configPath)
	if err != nil {
		return err
	}
	p := cfg.ActiveProfile(o.profile)

	flags := cmd.Flags()
	if !flags.Changed("host") {
		if v := os.Getenv(EnvHost); v != "" {
			o.host = v
		} else if p.Host != "" {
			o.host = p.Host
		}
	}
	if !flags.Changed("output") {
		if v := os.Getenv(EnvOutput); v != "" {
			o.output = v
		} else if p.Output != "" {
			o.output = p.Output
		}
	}

	if err := validateHostURL(o.host); err != nil {
		return err
	}
	if o.output == "" {
		o.format = defaultFormatFor(cmd.OutOrStdout())
	} else if o.format, err = parseOutputFormat(o.output); err != nil {
		return err
	}
	o.client = NewClient(o.host)
	return nil
}

func defaultFormatFor(w io.Writer) OutputFormat {
	if f, ok := w.(*os.File); ok {
		return defaultOutputFormat(f)
	}
	return OutputJSON
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pipeterm %s (%s)\n", version, commit)
		},
	}
}
