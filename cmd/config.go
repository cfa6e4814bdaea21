package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/khrees2412/jobhunter/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "View and update configuration settings",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		c := config.AppConfig
		row := func(label string, value any) {
			cmd.Printf("%s %s\n", labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
		}

		cmd.Println(titleStyle.Render("Configuration"))
		row("Config File:", config.GetConfigPath())
		row("Data:", c.CSVPath())
		row("Model:", c.Bucket+"/"+c.ModelFile)

		cmd.Println(labelStyle.Render("\nScraper"))
		row("  Base URL:", c.BaseURL)
		row("  Radius:", c.Radius)
		row("  Results per page:", c.PageLimit)
		row("  Request delay:", c.RequestDelay)
		row("  Headless browser:", c.UseBrowser)
		row("  Queries:", strings.Join(c.Queries, ", "))
		row("  Cities:", strings.Join(c.Cities, ", "))

		cmd.Println(labelStyle.Render("\nModel"))
		stemlem := c.StemLem
		if stemlem == "" {
			stemlem = "none"
		}
		row("  Stem/lemmatize:", stemlem)
		row("  min_df / max_df:", fmt.Sprintf("%g / %g", c.MinDF, c.MaxDF))
		row("  Cities modelled:", c.NumCities)
		row("  n-grams:", c.NGrams)
		row("  Stop words removed:", c.UseStopwords)
		row("  Vectorizer:", c.Vectorizer)
		row("  Classifier:", c.Classifier)

		cmd.Println(labelStyle.Render("\nWeb app"))
		row("  Listen address:", c.ListenAddr)
		row("  Log level:", c.LogLevel)
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  jobhunter config set --key num_cities --value 4
  jobhunter config set --key stemlem --value wordnet,snowball
  jobhunter config set --key vectorizer --value count`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" || value == "" {
			return fmt.Errorf("both --key and --value are required")
		}

		// Validate key
		if !slices.Contains(config.ValidKeys(), key) {
			return fmt.Errorf("invalid key, must be one of: %s", strings.Join(config.ValidKeys(), ", "))
		}

		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("error updating config: %w", err)
		}

		// Reload config so invalid values are reported right away
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("configuration saved but does not validate: %w", err)
		}

		cmd.Printf("✓ Configuration updated: %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setConfigCmd)

	// Flags for set command
	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")
}
