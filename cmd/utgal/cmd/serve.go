/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/api"
	"github.com/ssargent/utgallery/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the utgallery REST API server for the galleries in the data directory.

Requests to /api/v1 must carry the configured key in the X-API-Key header.
Prometheus metrics are served at /metrics and API documentation at /swagger/.

Examples:
  utgal serve
  utgal serve --port 9000 --bind 0.0.0.0
  utgal serve --api-key mysecretkey --data-dir ./data`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg)
	},
}

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the utgallery server",
	Long: `Create the configuration with a generated API key if it does not exist,
then start the REST API server. This is the recommended way to get utgallery
running.

Examples:
  utgal up
  utgal up --data-dir ./mydata --port 9000 --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printKey, _ := cmd.Flags().GetBool("print-key")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath := configPathFlag(cmd)
		out := cmd.OutOrStdout()

		cfg := container.Config()
		if !config.ConfigExists(configPath) {
			fmt.Fprintf(out, "🔧 First run detected. Bootstrapping utgallery...\n")
			bootstrapped, err := config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return err
			}
			cfg.Security.APIKey = bootstrapped.Security.APIKey
			fmt.Fprintf(out, "✅ Configuration created at %s\n", configPath)
			if printKey {
				fmt.Fprintf(out, "\n🔑 API key: %s\n", bootstrapped.Security.APIKey)
				fmt.Fprintf(out, "⚠️  Store this key securely! It is also saved in %s\n\n", configPath)
			}
		} else {
			fmt.Fprintf(out, "✅ Loaded existing configuration from %s\n", configPath)
		}

		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, upCmd)

	for _, c := range []*cobra.Command{serveCmd, upCmd} {
		c.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
		c.Flags().String("bind", "127.0.0.1", "Address to bind server to (default from config)")
	}
	serveCmd.Flags().String("api-key", "", "API key for request authentication (default from config)")
	upCmd.Flags().Bool("print-key", false, "Print the generated API key to the console")
}

// applyServerFlags overrides the configuration with explicitly set flags
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Lookup("api-key") != nil && cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}
}

// runServer serves the registry and catalog until interrupted
func runServer(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
		return fmt.Errorf("no API key configured: run 'utgal init' or pass --api-key")
	}

	registry, err := container.Registry()
	if err != nil {
		return err
	}
	catalog, err := container.Catalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := container.Logger()
	logger.Info().
		Str("data_dir", cfg.DataDir).
		Str("bind", cfg.Bind).
		Int("port", cfg.Port).
		Msg("starting utgallery")

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, registry, catalog, api.ServerConfig{
		Port:            cfg.Port,
		Bind:            cfg.Bind,
		APIKey:          cfg.Security.APIKey,
		DefaultParallel: cfg.Scan.Parallel,
		Logger:          logger,
	})
}

