package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict [description]",
	Short: "Rank cities for a job description",
	Long:  "Rank the modelled cities for a job description given as arguments, or read from stdin when the only argument is -",
	Example: `  jobhunter predict "Spark, Python and a Series B startup"
  cat posting.txt | jobhunter predict -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if text == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("description is empty")
		}

		m, err := application.LoadModel(cmd.Context())
		if err != nil {
			return err
		}
		scores, err := m.Rank(text)
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render("Most likely cities"))
		for i, s := range scores {
			cmd.Printf("%s %-20s %s %5.1f%%\n", labelStyle.Render(fmt.Sprintf("%d.", i+1)), s.City, bar(s.Probability, 20), s.Probability*100)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
