package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/sushantshinde2401/bookkeeper/internal/web"
)

var (
	webPort int
	webHost string
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Launch the TUI in the browser, one session per tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := consoleLogger()
		defer logger.Sync()

		apiAddr, stop, err := ensureServer(cmd, logger)
		if err != nil {
			return err
		}
		defer stop()

		listenAddr := cfg.WebAddr
		if cmd.Flags().Changed("port") || cmd.Flags().Changed("host") {
			listenAddr = net.JoinHostPort(webHost, fmt.Sprintf("%d", webPort))
		}
		fmt.Printf("bookkeeper web UI: http://%s\n", listenAddr)

		webSrv := web.NewServer(listenAddr, apiAddr, logger)
		return webSrv.ListenAndServe()
	},
}

func init() {
	webCmd.Flags().IntVar(&webPort, "port", 8080, "HTTP port for web terminal")
	webCmd.Flags().StringVar(&webHost, "host", "localhost", "HTTP host for web terminal")
	rootCmd.AddCommand(webCmd)
}
