package cmd

import (
	"fmt"
	"strings"

	"github.com/khrees2412/jobhunter/internal/topics"
	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:     "topics",
	Short:   "Extract NMF topics from the listings of one city",
	Example: `  jobhunter topics --city San+Francisco --topics 8 --words 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		city, _ := cmd.Flags().GetString("city")
		nWords, _ := cmd.Flags().GetInt("words")
		nTopics, _ := cmd.Flags().GetInt("topics")
		if city == "" {
			return fmt.Errorf("--city is required")
		}

		listings, err := application.LoadListings(cmd.Context())
		if err != nil {
			return err
		}
		found, err := topics.Model(listings, city, nWords, nTopics)
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render("Topics for " + cityName(city)))
		for _, t := range found {
			cmd.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("Topic %d:", t.Index+1)), strings.Join(t.Words, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)

	topicsCmd.Flags().String("city", "", "City search term, e.g. San+Francisco")
	topicsCmd.Flags().Int("words", 10, "Words per topic")
	topicsCmd.Flags().Int("topics", 10, "Number of topics")
}
