package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/airregi-sync/pkg/handlers/console"
	"github.com/de-tools/airregi-sync/pkg/server"
)

var (
	addr     string
	identity string
	secret   string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "fakeconsole",
		Short: "Serve a rehearsal POS console for dry runs",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default SERVER_HOST:SERVER_PORT from .env)")
	rootCmd.Flags().StringVar(&identity, "identity", "demo@example.com", "Account accepted by the login form")
	rootCmd.Flags().StringVar(&secret, "secret", "demo", "Password accepted by the login form")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if addr == "" {
		host := os.Getenv("SERVER_HOST")
		port := os.Getenv("SERVER_PORT")
		if host == "" || port == "" {
			return fmt.Errorf("no listen address: pass --addr or set SERVER_HOST and SERVER_PORT")
		}
		addr = net.JoinHostPort(host, port)
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Console: console.NewHandler(console.Config{Identity: identity, Secret: secret}),
		},
	})

	logger.Info().Msgf("log in at http://%s%s as `%s`", addr, console.LoginPath, identity)
	return api.Start()
}
