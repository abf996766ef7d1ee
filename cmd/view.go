package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/view"
	"github.com/spf13/cobra"
)

var (
	vwSearch   string
	vwColumn   string
	vwType     string
	vwSort     string
	vwOrder    string
	vwPage     int
	vwPageSize int
	vwOps      []string
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Search, sort and page through a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := view.ParseSortOrder(vwOrder)
		if err != nil {
			return err
		}
		var typ dataset.ColumnType
		if vwType != "" && vwType != "all" {
			typ = dataset.ColumnType(vwType)
			if !typ.Valid() {
				return fmt.Errorf("unsupported --type: %s (use string, number, date or all)", vwType)
			}
		}
		pageSize := vwPageSize
		if !cmd.Flags().Changed("page-size") {
			if c, err := config(); err == nil && c.PageSize > 0 {
				pageSize = c.PageSize
			}
		}

		t, err := loadTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, name := range vwOps {
			op, err := cleaning.ParseOperation(name)
			if err != nil {
				return err
			}
			res, err := cleaning.Apply(t, op)
			if err != nil {
				return err
			}
			t = res.Table
		}

		page := view.Apply(t, view.Query{
			Search:     vwSearch,
			Column:     vwColumn,
			DataType:   typ,
			SortColumn: vwSort,
			SortOrder:  order,
			Page:       vwPage,
			PageSize:   pageSize,
		})

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprint(tw, "#")
		for _, c := range t.Columns {
			fmt.Fprintf(tw, "\t%s", c)
		}
		fmt.Fprintln(tw)
		for i, r := range page.Rows {
			fmt.Fprint(tw, strconv.Itoa(page.Indexes[i]+1))
			for _, c := range t.Columns {
				fmt.Fprintf(tw, "\t%s", r[c].String())
			}
			fmt.Fprintln(tw)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d of %d rows match (page %d/%d)\n",
			page.TotalMatched, t.Statistics.TotalRows, page.Page, max(page.TotalPages, 1))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVarP(&vwSearch, "search", "s", "", "case-insensitive search term")
	viewCmd.Flags().StringVar(&vwColumn, "column", "", "restrict the search to this column")
	viewCmd.Flags().StringVar(&vwType, "type", "", "keep rows with a value in a column of this type: string, number, date or all")
	viewCmd.Flags().StringVar(&vwSort, "sort", "", "column to sort by")
	viewCmd.Flags().StringVar(&vwOrder, "order", "asc", "sort order: asc or desc")
	viewCmd.Flags().IntVarP(&vwPage, "page", "p", 1, "1-based page number")
	viewCmd.Flags().IntVar(&vwPageSize, "page-size", view.DefaultPageSize, "rows per page (default from config)")
	viewCmd.Flags().StringArrayVar(&vwOps, "op", nil, "cleaning operation to apply before viewing (repeatable)")
}
