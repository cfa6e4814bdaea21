package cmd

import (
	"github.com/khrees2412/jobhunter/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := appFrom(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = application.Config.ListenAddr
		}
		rpm, _ := cmd.Flags().GetInt("rate")

		// Load in the model once, before accepting requests
		m, err := application.LoadModel(cmd.Context())
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Addr:              addr,
			RequestsPerMinute: rpm,
			Burst:             max(rpm/6, 1),
		}, m, application.Logger.Named("server"))
		if err != nil {
			return err
		}
		cmd.Printf("🌐 Serving %s on %s\n", server.Title, addr)
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to listen_addr)")
	serveCmd.Flags().Int("rate", 60, "Requests per minute per client, 0 disables limiting")
}
