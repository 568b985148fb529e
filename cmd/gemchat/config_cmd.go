package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"gemchat/internal/config"

	"github.com/spf13/cobra"
)

// configCmd groups the configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration and the stored chat settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(out, "KEY\tVALUE")
		for _, e := range cfg.Entries() {
			fmt.Fprintf(out, "%s\t%s\n", e.Key, e.Value)
		}

		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		settings := a.store.Settings()
		fmt.Fprintln(out, "\t")
		fmt.Fprintln(out, "STORED\tVALUE")
		fmt.Fprintf(out, "current_session\t%s\n", settings.CurrentSession)
		fmt.Fprintf(out, "model\t%s\n", settings.Model)
		fmt.Fprintf(out, "context_length\t%d\n", settings.ContextLength)
		fmt.Fprintf(out, "api_key\t%s\n", config.MaskSecret(settings.APIKey))
		return out.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting.
model, context_length and api_key are chat settings kept in the session store;
every other key is written to ~/.config/gemchat/config.yaml.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		switch key {
		case config.KeyModel, config.KeyContextLength, config.KeyAPIKey:
			return setStoredValue(cmd, key, value)
		}

		if err := loader.SetFileValue(key, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s written to %s\n", key, loader.Paths().ConfigFile())
		return nil
	},
}

func setStoredValue(cmd *cobra.Command, key, value string) error {
	a, err := openApp(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	switch key {
	case config.KeyModel:
		err = a.store.SetModel(value)
	case config.KeyContextLength:
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return fmt.Errorf("invalid context length %q", value)
		}
		err = a.store.SetContextLength(n)
	case config.KeyAPIKey:
		err = a.store.SetAPIKey(value)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", key)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
