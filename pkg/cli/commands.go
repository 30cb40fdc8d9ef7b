package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLakesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lakes",
		Short: "List the lakes under the server's lake root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lakes, err := opts.client.ListLakes(cmd.Context())
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), opts.format, "LAKE", lakes)
		},
	}
}

func newFilesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "files <lake>",
		Short: "List the CSV files in a lake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := opts.client.ListFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), opts.format, "FILE", files)
		},
	}
}

func newTablesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <lake>",
		Short: "List the tables available for querying in a lake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := opts.client.ListTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), opts.format, "TABLE", tables)
		},
	}
}

func newQueryCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "query <lake> [sql]",
		Short: "Run SQL against a lake",
		Long: `Run SQL against a lake. The statement comes from the second argument,
from --file, or from stdin when neither is given.`,
		Example: `  pipeterm query salesforce "SELECT COUNT(*) FROM accounts"
  pipeterm query byod --file report.sql
  echo "SELECT * FROM orders LIMIT 5" | pipeterm query byod`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args, file)
			if err != nil {
				return err
			}
			res, err := opts.client.Query(cmd.Context(), args[0], sql)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.format, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read SQL from a file ('-' for stdin)")
	return cmd
}

// readSQL picks the statement from the argument, --file or piped stdin.
func readSQL(cmd *cobra.Command, args []string, file string) (string, error) {
	var sql string
	switch {
	case len(args) == 2 && file != "":
		return "", fmt.Errorf("give SQL either as an argument or with --file, not both")
	case len(args) == 2:
		sql = args[1]
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		sql = string(data)
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // path comes from the user
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		sql = string(data)
	default:
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
				return "", fmt.Errorf("provide SQL as an argument, with --file, or on stdin")
			}
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		sql = string(data)
	}

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", fmt.Errorf("SQL statement is empty")
	}
	return sql, nil
}
