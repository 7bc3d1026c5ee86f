/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with a generated API key",
	Long: `Create the utgallery configuration file and data directory.

This command will:
- Generate a random API key for the REST server
- Write the configuration with owner-only permissions
- Create the gallery directory

Examples:
  utgal init
  utgal init --config ./utgallery.yaml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		configPath := configPathFlag(cmd)
		out := cmd.OutOrStdout()

		if config.ConfigExists(configPath) && !force {
			fmt.Fprintf(out, "Configuration already exists at %s. Use --force to regenerate it.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.GalleryDir(), 0750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		fmt.Fprintf(out, "✅ Configuration created at %s\n", configPath)
		fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
		if printKey {
			fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
		}
		fmt.Fprintf(out, "\nYou can now start the server with:\n  utgal serve --config %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// configPathFlag returns --config or the platform default
func configPathFlag(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.GetDefaultConfigPath()
}
