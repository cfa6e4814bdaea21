package cmd

import (
	"fmt"

	"github.com/khrees2412/jobhunter/internal/scraper"
	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape Indeed job listings",
	Long: `Scrape Indeed result pages and append the listings to the data store.
Without --query and --city every configured query is run for every configured
city. With --daily only listings posted today are collected.`,
	Example: `  jobhunter scrape
  jobhunter scrape --query Data+Scientist --city New+York
  jobhunter scrape --daily`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		query, _ := cmd.Flags().GetString("query")
		city, _ := cmd.Flags().GetString("city")
		daily, _ := cmd.Flags().GetBool("daily")

		if (query == "") != (city == "") {
			return fmt.Errorf("--query and --city must be given together")
		}

		s, release, err := application.NewScraper(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		s.Progress = scraper.NewSearchProgress(cmd.OutOrStdout())

		cmd.Println("🔍 Starting Indeed scrape...")
		var runs []*models.ScrapeRun
		if query != "" {
			run, err := s.Scrape(cmd.Context(), query, city, daily)
			if run != nil {
				runs = append(runs, run)
			}
			if err != nil {
				return err
			}
		} else {
			runs, err = s.RunAll(cmd.Context(), application.Config.Queries, application.Config.Cities, daily)
			if err != nil {
				return err
			}
		}

		total, pages := 0, 0
		for _, run := range runs {
			total += run.Listings
			pages += run.Pages
		}
		cmd.Println()
		cmd.Printf("📋 %d listings from %d pages saved to %s\n", total, pages, application.Config.CSVPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().String("query", "", "Search query, e.g. Data+Scientist")
	scrapeCmd.Flags().String("city", "", "City search term, e.g. San+Francisco")
	scrapeCmd.Flags().Bool("daily", false, "Only collect listings posted today")
}
