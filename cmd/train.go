package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khrees2412/jobhunter/internal/app"
	"github.com/khrees2412/jobhunter/internal/database"
	"github.com/khrees2412/jobhunter/internal/model"
	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the city classifier on the scraped listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		listings, err := application.LoadListings(cmd.Context())
		if err != nil {
			return err
		}

		spec := application.ModelSpec()
		m, err := model.New(spec)
		if err != nil {
			return err
		}
		if err := m.Fit(listings); err != nil {
			return fmt.Errorf("training failed: %w", err)
		}
		accuracy, truth, _, err := m.Score(listings)
		if err != nil {
			return err
		}
		if err := application.SaveModel(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}

		recordRun(application, spec, "train", len(truth), 0, accuracy)

		cmd.Println(titleStyle.Render("Model trained"))
		cmd.Printf("%s %d\n", labelStyle.Render("Documents:"), len(truth))
		cmd.Printf("%s %d\n", labelStyle.Render("Vocabulary:"), len(m.Processing.Vectorize.FeatureNames()))
		cmd.Printf("%s %s\n", labelStyle.Render("Cities:"), strings.Join(cityLabels(spec), ", "))
		cmd.Printf("%s %.1f%%\n", labelStyle.Render("Training accuracy:"), accuracy*100)
		cmd.Printf("%s %s/%s\n", labelStyle.Render("Saved to:"), application.Config.Bucket, application.Config.ModelFile)
		return nil
	},
}

// recordRun stores a training run in the local index; failures are only logged
func recordRun(application *app.App, spec model.Spec, kind string, documents, folds int, accuracy float64) {
	if database.DB == nil {
		return
	}
	params, _ := json.Marshal(spec.Processing)
	run := &models.TrainingRun{
		Kind:       kind,
		Classifier: spec.Classifier,
		Vectorizer: string(spec.Processing.Vectorizer),
		Params:     string(params),
		Documents:  documents,
		Folds:      folds,
		Accuracy:   accuracy,
	}
	if err := database.CreateTrainingRun(run); err != nil {
		application.Logger.Warn("failed to record training run", zap.Error(err))
	}
}

// cityLabels lists the display names of the modelled classes in label order
func cityLabels(spec model.Spec) []string {
	names := make([]string, spec.Processing.NumCities)
	for _, c := range spec.Processing.Cities {
		if c.Label < len(names) {
			names[c.Label] = c.Display
		}
	}
	return names
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
