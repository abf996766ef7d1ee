package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/store"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/KaramelBytes/tabloom-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	dsName string
	dsOps  []string
	dsJSON bool
)

var datasetsCmd = &cobra.Command{
	Use:     "datasets",
	Aliases: []string{"ds"},
	Short:   "Save, list, show or delete stored datasets",
}

var datasetsSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Parse a file, optionally clean it, and store it for the configured user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		t, err := loadTable(ctx, args[0])
		if err != nil {
			return err
		}
		ws := workspace.New(logger)
		ws.Load(t)
		for _, name := range dsOps {
			op, err := cleaning.ParseOperation(name)
			if err != nil {
				return err
			}
			if _, err := ws.Apply(op); err != nil {
				return err
			}
		}

		st, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		name := dsName
		if name == "" {
			base := filepath.Base(args[0])
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		d := &store.Dataset{
			UserID:   c.UserID,
			Name:     name,
			Filename: t.Filename,
			Uploaded: ws.Table(workspace.ViewOriginal),
		}
		if hist := ws.History(); len(hist) > 0 {
			d.Cleaned = ws.Table(workspace.ViewCleaned)
			for _, op := range hist {
				d.Operations = append(d.Operations, string(op))
			}
		}
		if err := st.SaveDataset(ctx, d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved dataset '%s' (ID: %s)\n", d.Name, d.ID)
		return nil
	},
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		list, err := st.ListDatasets(cmd.Context(), c.UserID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range list {
			fmt.Fprintf(out, "- %s: %s (%s, %d rows, %d columns", d.ID, d.Name, d.Filename,
				d.Statistics.TotalRows, d.Statistics.TotalColumns)
			if len(d.Operations) > 0 {
				fmt.Fprintf(out, ", cleaned: %s", strings.Join(d.Operations, " → "))
			}
			fmt.Fprintln(out, ")")
		}
		return nil
	},
}

var datasetsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored dataset's summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		d, err := st.GetDataset(cmd.Context(), c.UserID, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dsJSON {
			b, err := utils.PrettyJSON(d)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "ID: %s\nName: %s\nFile: %s\n", d.ID, d.Name, d.Filename)
		fmt.Fprintf(out, "Created: %s\nUpdated: %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"), d.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Rows: %d\nColumns: %d\nMissing values: %d\n",
			d.Statistics.TotalRows, d.Statistics.TotalColumns, d.Statistics.MissingValues)
		if len(d.Operations) > 0 {
			fmt.Fprintf(out, "Operations: %s\n", strings.Join(d.Operations, ", "))
		}
		if d.Uploaded != nil {
			fmt.Fprintln(out, "Column types:")
			for _, col := range d.Uploaded.Columns {
				fmt.Fprintf(out, "  - %s: %s\n", col, d.Statistics.DataTypes[col])
			}
		}
		return nil
	},
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.DeleteDataset(cmd.Context(), c.UserID, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted dataset %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(datasetsSaveCmd, datasetsListCmd, datasetsShowCmd, datasetsDeleteCmd)
	datasetsSaveCmd.Flags().StringVarP(&dsName, "name", "n", "", "dataset name (default: file name without extension)")
	datasetsSaveCmd.Flags().StringArrayVar(&dsOps, "op", nil, "cleaning operation to apply before saving (repeatable)")
	datasetsShowCmd.Flags().BoolVar(&dsJSON, "json", false, "print the full record as JSON")
}
