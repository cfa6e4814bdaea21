package cmd

import (
	"fmt"
	"strings"

	"github.com/khrees2412/jobhunter/internal/model"
	"github.com/spf13/cobra"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Cross-validate the configured model",
	Long:  "Run shuffled K-fold cross-validation and print per-fold accuracy and the confusion matrix",
	Example: `  jobhunter cv
  jobhunter cv --folds 10 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		folds, _ := cmd.Flags().GetInt("folds")
		seed, _ := cmd.Flags().GetInt64("seed")

		listings, err := application.LoadListings(cmd.Context())
		if err != nil {
			return err
		}
		spec := application.ModelSpec()
		m, err := model.New(spec)
		if err != nil {
			return err
		}

		report, err := m.CrossValidate(cmd.Context(), listings, folds, seed)
		if err != nil {
			return fmt.Errorf("cross-validation failed: %w", err)
		}
		recordRun(application, spec, "cv", report.Documents, folds, report.MeanAccuracy)

		cmd.Println(titleStyle.Render(fmt.Sprintf("%d-fold cross-validation", folds)))
		for i, score := range report.FoldScores {
			cmd.Printf("  Fold %d: %.1f%%\n", i+1, score*100)
		}
		cmd.Printf("\n%s %.1f%%\n", labelStyle.Render("Mean accuracy:"), report.MeanAccuracy*100)

		names := cityLabels(spec)
		width := 0
		for _, n := range names {
			width = max(width, len(n))
		}
		cmd.Printf("\n%s\n", labelStyle.Render("Confusion matrix (rows: actual, columns: predicted)"))
		header := []string{fmt.Sprintf("%-*s", width, "")}
		for i := range names {
			header = append(header, fmt.Sprintf("%6d", i))
		}
		cmd.Println("  " + strings.Join(header, " "))
		for i, row := range report.Confusion {
			cells := []string{fmt.Sprintf("%-*s", width, names[i])}
			for _, n := range row {
				cells = append(cells, fmt.Sprintf("%6d", n))
			}
			cmd.Println("  " + strings.Join(cells, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cvCmd)

	cvCmd.Flags().Int("folds", 5, "Number of folds")
	cvCmd.Flags().Int64("seed", 1, "Shuffle seed")
}
