package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/store"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	trTarget    string
	trTask      string
	trFeatures  []string
	trTestSplit float64
	trDataset   string
	trSave      bool
	trJSON      bool
)

var trainCmd = &cobra.Command{
	Use:   "train [file]",
	Short: "Train a model on a file or stored dataset and print recommendations",
	Long: `Train runs the configured trainer against a table and prints the best model,
its score, feature importance and recommendations derived from the result.
Use --dataset to train on a stored dataset (its cleaned table when present).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (trDataset == "") {
			return fmt.Errorf("specify exactly one of <file> or --dataset")
		}
		if trTarget == "" {
			return fmt.Errorf("--target is required")
		}
		task, err := automl.ParseTask(trTask)
		if err != nil {
			return err
		}
		c, err := config()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		trainer, err := newTrainer()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var st store.Store
		if trSave || trDataset != "" {
			if st, err = openStore(ctx, logger); err != nil {
				return err
			}
			defer st.Close()
		}

		var t *dataset.Table
		if trDataset != "" {
			d, err := st.GetDataset(ctx, c.UserID, trDataset)
			if err != nil {
				return err
			}
			t = d.Cleaned
			if t == nil {
				t = d.Uploaded
			}
		} else if t, err = loadTable(ctx, args[0]); err != nil {
			return err
		}

		tc := automl.TrainConfig{
			TargetColumn: trTarget,
			Task:         task,
			Features:     trFeatures,
			TestSplit:    trTestSplit,
		}
		res, err := trainer.Train(ctx, t, tc)
		if err != nil {
			return err
		}
		rep := automl.Insights(res, t.Statistics)

		out := cmd.OutOrStdout()
		if trJSON {
			b, err := utils.PrettyJSON(map[string]any{"results": res, "insights": rep})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			printResults(out, res, rep)
		}

		if trSave {
			rec := &store.Result{
				UserID:         c.UserID,
				DatasetID:      trDataset,
				Results:        res,
				TrainingConfig: tc,
			}
			if err := st.SaveResult(ctx, rec); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Saved result (ID: %s)\n", rec.ID)
		}
		return nil
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored training results, newest first",
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
		list, err := st.ListResults(cmd.Context(), c.UserID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no results)")
			return nil
		}
		for _, r := range list {
			score := 0.0
			if r.Results != nil {
				score = r.Results.Score()
			}
			fmt.Fprintf(out, "- %s: %s → %s (%s, score %.3f, %s)\n", r.ID, r.ModelName, r.TargetColumn,
				r.TaskType, score, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func printResults(w io.Writer, res *automl.ModelResults, rep automl.Report) {
	fmt.Fprintf(w, "Best model: %s (%s on %q)\n", res.BestModel, res.Task, res.TargetColumn)
	if res.Accuracy != nil {
		fmt.Fprintf(w, "Accuracy: %.1f%%\n", *res.Accuracy*100)
	}
	if res.R2Score != nil {
		fmt.Fprintf(w, "R² score: %.3f\n", *res.R2Score)
	}
	if res.MSE != nil {
		fmt.Fprintf(w, "MSE: %.3f\n", *res.MSE)
	}
	fmt.Fprintf(w, "Cross-validation: %.3f\n", res.CrossValidationScore)
	fmt.Fprintf(w, "Rows: %d train / %d test\n", res.TrainRows, res.TestRows)

	fmt.Fprintln(w, "\nFeature importance:")
	for _, f := range res.FeatureImportance {
		bar := strings.Repeat("█", int(f.Importance*20+0.5))
		fmt.Fprintf(w, "  %-20s %5.1f%% %s\n", f.Feature, f.Importance*100, bar)
	}
	fmt.Fprintln(w, "\nLeaderboard:")
	for i, m := range res.Leaderboard {
		fmt.Fprintf(w, "  %d. %-26s %.3f\n", i+1, m.Model, m.Score)
	}

	if len(rep.Insights) > 0 {
		fmt.Fprintln(w, "\nInsights:")
		for _, in := range rep.Insights {
			fmt.Fprintf(w, "  • %s: %s\n", in.Title, in.Description)
		}
	}
	for _, g := range rep.Recommendations {
		fmt.Fprintf(w, "\n%s (%s priority):\n", g.Category, g.Priority)
		for _, r := range g.Recommendations {
			fmt.Fprintf(w, "  - %s: %s\n", r.Title, r.Description)
		}
	}
	if len(rep.QuickWins) > 0 {
		fmt.Fprintln(w, "\nQuick wins:")
		for _, r := range rep.QuickWins {
			fmt.Fprintf(w, "  - %s (%s)\n", r.Title, r.Effort)
		}
	}
}

func init() {
	rootCmd.AddCommand(trainCmd, resultsCmd)
	trainCmd.Flags().StringVarP(&trTarget, "target", "t", "", "target column to predict")
	trainCmd.Flags().StringVar(&trTask, "task", "classification", "task type: classification or regression")
	trainCmd.Flags().StringSliceVar(&trFeatures, "features", nil, "comma-separated feature columns (default: all other columns)")
	trainCmd.Flags().Float64Var(&trTestSplit, "test-split", 0.2, "fraction of rows held out for testing")
	trainCmd.Flags().StringVarP(&trDataset, "dataset", "d", "", "train on a stored dataset instead of a file")
	trainCmd.Flags().BoolVar(&trSave, "save", false, "store the result for the configured user")
	trainCmd.Flags().BoolVar(&trJSON, "json", false, "print results and insights as JSON")
}
