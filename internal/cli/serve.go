package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ascend API server",
	Long:  `Start the JSON API server, by default at 127.0.0.1:8427.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Serve(cmd.Context())
}
