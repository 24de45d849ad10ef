package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tjchat/config"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tjchat configuration",
		Long:  `Get and set configuration values stored in ~/.tjchat/config.json`,
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ignores --base-url.
			cfg, err := config.LoadConfig(a.paths.ConfigPath())
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			keys := config.Keys()
			if len(args) == 1 {
				keys = args
			}
			for _, key := range keys {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			}
			return nil
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfg, err := config.LoadConfig(a.paths.ConfigPath())
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if err := cfg.Set(key, value); err != nil {
				return fmt.Errorf("error setting config value: %w", err)
			}
			if err := config.SaveConfig(a.paths.ConfigPath(), cfg); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			a.logger.Info("config updated", zap.String("key", key))
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}

	configCmd.AddCommand(configGetCmd, configSetCmd)
	return configCmd
}
