// Package main provides the gemchat CLI entry point.
// gemchat is a terminal chat client for Google's Gemini models with named, persisted sessions.
package main

import (
	"fmt"
	"io"
	"os"

	"gemchat/internal/chat"
	"gemchat/internal/config"
	"gemchat/internal/logger"
	"gemchat/internal/version"

	"github.com/spf13/cobra"
)

// cfg is resolved before any subcommand runs.
var cfg *config.Config

// loader is created per invocation so that tests can change HOME between runs.
var loader *config.Loader

// flagKeys maps persistent flag names to configuration keys.
var flagKeys = map[string]string{
	"store":           config.KeyStore,
	"db":              config.KeyDBPath,
	"model":           config.KeyModel,
	"context-length":  config.KeyContextLength,
	"base-url":        config.KeyBaseURL,
	"request-timeout": config.KeyRequestTimeout,
	"render-style":    config.KeyRenderStyle,
	"word-wrap":       config.KeyWordWrap,
	"log-level":       config.KeyLogLevel,
	"log-file":        config.KeyLogFile,
	"debug-http":      config.KeyDebugHTTP,
	"listen":          config.KeyListen,
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gemchat",
	Short: "gemchat - chat with Gemini from the terminal",
	Long: `gemchat is a terminal chat client for Google's Gemini models.
Conversations are kept as named sessions in a local store and can be exported, imported and served over a local HTTP API.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	RunE:              runChat, // Default behavior is to run the interactive chat
}

// chatCmd represents the chat command (explicit version of default behavior)
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long:  `Start the interactive chat shell on the active session.`,
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of gemchat.`,
	Run: func(cmd *cobra.Command, _ []string) {
		detailed, _ := cmd.Flags().GetBool("detailed")
		if detailed {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError prints err unless a notice already told the user about it.
func printError(w io.Writer, err error) {
	if chat.Notified(err) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("store", "", "Storage backend (sqlite|memory) [default: sqlite]")
	flags.String("db", "", "SQLite database path [default: ~/.local/share/gemchat/gemchat.db]")
	flags.String("model", "", "Default model when none is stored")
	flags.Int("context-length", 0, "Default number of trailing messages sent as context")
	flags.String("base-url", "", "Override the Gemini API base URL")
	flags.Duration("request-timeout", 0, "Timeout for each reply (0 disables)")
	flags.String("render-style", "", "Markdown style (auto|dark|light|notty|ascii)")
	flags.Int("word-wrap", 0, "Markdown word wrap width")
	flags.String("log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.String("log-file", "", "Write logs to file instead of stderr")
	flags.Bool("debug-http", false, "Capture HTTP traffic to the Gemini API at debug level")

	versionCmd.Flags().Bool("detailed", false, "Show commit and build information")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig binds the flags that were set, resolves the configuration and configures the logger.
func initConfig(cmd *cobra.Command, _ []string) error {
	loader = config.NewLoader(config.DefaultPaths())
	v := loader.Viper()
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	resolved, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = resolved

	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	logger.Debug("Configuration resolved", "store", cfg.Store, "model", cfg.Model)
	return nil
}
