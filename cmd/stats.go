package cmd

import (
	"fmt"
	"sort"

	"github.com/khrees2412/jobhunter/internal/database"
	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View scraping and training statistics",
	Long:  "Display indexed listings per city and the most recent scrape and training runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		counts, err := database.CountListingsByCity()
		if err != nil {
			return fmt.Errorf("error counting listings: %w", err)
		}
		if len(counts) == 0 {
			cmd.Println("No listings yet. Scrape some with 'jobhunter scrape'")
			return nil
		}

		stats := calculateStats(counts)
		cmd.Println(titleStyle.Render("Listing Statistics"))

		cmd.Printf("%s\n", labelStyle.Render("Listings per city"))
		for _, c := range stats.Cities {
			cmd.Printf("  %-16s %6d (%4.1f%%) %s\n", cityName(c.Term), c.Count, c.Share*100, bar(c.Share, 20))
		}
		cmd.Printf("  %-16s %6d\n", "Total", stats.Total)

		scrapes, err := database.GetRecentScrapeRuns(limit)
		if err != nil {
			return fmt.Errorf("error fetching scrape runs: %w", err)
		}
		if len(scrapes) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Recent scrapes"))
			for _, run := range scrapes {
				mode := "full"
				if run.Daily {
					mode = "daily"
				}
				cmd.Printf("  %s  %-22s %-14s %-5s %3d pages %5d/%-6d listings  %s\n",
					run.StartedAt.Format("Jan 2 15:04"), run.Query, cityName(run.City), mode,
					run.Pages, run.Listings, run.TotalJobs, run.Status)
			}
		}

		trainings, err := database.GetRecentTrainingRuns(limit)
		if err != nil {
			return fmt.Errorf("error fetching training runs: %w", err)
		}
		if len(trainings) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Recent training runs"))
			for _, run := range trainings {
				folds := ""
				if run.Folds > 0 {
					folds = fmt.Sprintf("%d folds", run.Folds)
				}
				cmd.Printf("  %s  %-5s %-8s %-5s %6d docs %-8s accuracy %.1f%%\n",
					run.CreatedAt.Format("Jan 2 15:04"), run.Kind, run.Classifier, run.Vectorizer,
					run.Documents, folds, run.Accuracy*100)
			}
		}
		return nil
	},
}

type CityCount struct {
	Term  string
	Label int // -1 when the city is not in the label table
	Count int
	Share float64
}

type Stats struct {
	Total  int
	Cities []CityCount
}

// calculateStats orders cities by label, unknown cities last by name
func calculateStats(counts map[string]int) Stats {
	labels := map[string]int{}
	for _, c := range models.DefaultCities {
		labels[c.Term] = c.Label
	}

	stats := Stats{}
	for term, n := range counts {
		label, ok := labels[term]
		if !ok {
			label = -1
		}
		stats.Cities = append(stats.Cities, CityCount{Term: term, Label: label, Count: n})
		stats.Total += n
	}
	for i := range stats.Cities {
		stats.Cities[i].Share = float64(stats.Cities[i].Count) / float64(stats.Total)
	}
	sort.Slice(stats.Cities, func(i, j int) bool {
		a, b := stats.Cities[i], stats.Cities[j]
		if (a.Label < 0) != (b.Label < 0) {
			return a.Label >= 0
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Term < b.Term
	})
	return stats
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("limit", 10, "Number of recent runs to show")
}
