package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/KaramelBytes/tabloom-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	clnOps         []string
	clnOutputPath  string
	clnChangesPath string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Apply cleaning operations in order and write the cleaned table",
	Long: `Apply one or more cleaning operations to a table. Operations run in the
order given. Available operations: ` + operationNames() + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(clnOps) == 0 {
			return fmt.Errorf("at least one --op is required (%s)", operationNames())
		}
		ops := make([]cleaning.Operation, 0, len(clnOps))
		for _, name := range clnOps {
			op, err := cleaning.ParseOperation(name)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		t, err := loadTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ws := workspace.New(logger)
		ws.Load(t)

		out := cmd.OutOrStdout()
		for _, op := range ops {
			changes, err := ws.Apply(op)
			if err != nil {
				return err
			}
			st := ws.Table(workspace.ViewCleaned).Statistics
			fmt.Fprintf(out, "✓ %s: %d changes (%d rows, %d missing)\n", op, len(changes), st.TotalRows, st.MissingValues)
		}

		if clnOutputPath != "" {
			if err := writeTable(clnOutputPath, ws.Table(workspace.ViewCleaned)); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote cleaned table to %s\n", clnOutputPath)
		}
		if clnChangesPath != "" {
			b, err := utils.PrettyJSON(ws.Changes())
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(clnChangesPath, b); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %d change records to %s\n", len(ws.Changes()), clnChangesPath)
		}
		return nil
	},
}

// writeTable exports as XLSX when the path ends in .xlsx and as CSV otherwise.
func writeTable(path string, t *dataset.Table) error {
	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = dataset.WriteXLSX(&buf, t)
	} else {
		err = dataset.WriteCSV(&buf, t)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func operationNames() string {
	names := make([]string, len(cleaning.Operations))
	for i, op := range cleaning.Operations {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringArrayVar(&clnOps, "op", nil, "cleaning operation to apply (repeatable, applied in order)")
	cleanCmd.Flags().StringVarP(&clnOutputPath, "output", "o", "", "write the cleaned table to this path (.csv or .xlsx)")
	cleanCmd.Flags().StringVar(&clnChangesPath, "changes", "", "write the change log as JSON to this path")
}
