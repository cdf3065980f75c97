package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	coreconfig "github.com/karacho11/first-chatbot-back/core/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatbot",
	Short: "Chat completion backend with conversation memory",
	Long: `Serves a chat endpoint backed by OpenAI or Gemini. Conversation history,
short-lived user profiles and conversation snapshots are kept in Valkey,
and optional request documents are ranked by embedding similarity.`,
	SilenceUsage: true,
}

func init() {
	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP(
		"port", "p", "",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolP(
		"debug", "d", false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().String(
		"provider", "",
		`completion provider --provider <openai|gemini> | example: --provider=gemini`,
	)
	rootCmd.PersistentFlags().String(
		"context-policy", "",
		`how history and documents combine --context-policy <history_replaces_rag|merge>`,
	)
	rootCmd.PersistentFlags().Bool(
		"memory-cache", false,
		"use the in-process cache instead of Valkey --memory-cache=true",
	)

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("ai_provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("ai_context_policy", rootCmd.PersistentFlags().Lookup("context-policy"))
	_ = viper.BindPFlag("memory_cache", rootCmd.PersistentFlags().Lookup("memory-cache"))
}

// initApp loads the configuration and lets explicit flags win over the environment.
func initApp() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.WithFields(logrus.Fields(coreconfig.GetAllSettings())).Debug("[CONFIG] Settings loaded")
}

func applyFlagOverrides(cfg *coreconfig.Config) {
	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetString("ai_provider"); v != "" {
		cfg.AI.UseProvider(v)
	}
	if v := viper.GetString("ai_context_policy"); v != "" {
		cfg.AI.ContextPolicy = v
	}
	if viper.GetBool("memory_cache") {
		cfg.Valkey.Enabled = false
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
