package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show the least and most informative features of the trained model",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("number")
		if n < 1 {
			return fmt.Errorf("--number must be positive")
		}

		m, err := application.LoadModel(cmd.Context())
		if err != nil {
			return err
		}
		least, most, err := m.InformativeFeatures(n)
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render("Informative features"))
		cmd.Printf("  %s  %s\n", labelStyle.Render(fmt.Sprintf("%-32s", "Least")), labelStyle.Render("Most"))
		for i := range least {
			cmd.Printf("  %8.4f %-23s  %8.4f %s\n", least[i].Importance, least[i].Name, most[i].Importance, most[i].Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().IntP("number", "n", 20, "Number of features per column")
}
