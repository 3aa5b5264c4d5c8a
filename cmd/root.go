// Package cmd implements the squadopt command line.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "squadopt",
		Short:        "Pick the best fantasy football squad under a budget",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (yaml or json)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with SQUAD_ overrides")

	root.AddCommand(newPickCmd(opts), newHistoryCmd(opts))
	return root
}

// loadEnvFile exports the variables of path without overriding the
// environment. A missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Execute runs the CLI.
func Execute() error { return newRootCmd().Execute() }
