package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	logLevel    string
	logFormat   string
	agentSource string
	scriptPath  string
	agentURL    string

	// Version info, set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "smartone",
	Short: "Stream an agent's answer into a live transcript",
	Long: `smartone submits a query to an agent, consumes its event stream in the
background and renders reasoning, tool use, intermediate output, images and
the final answer as the events arrive.

Running 'smartone' without arguments starts interactive chat mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./.smartone.yaml, then ~/.config/smartone/.smartone.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().StringVar(&agentSource, "agent-source", "script",
		"agent event source (script, http)")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script", "",
		"scenario file for the script source (default: built-in scenarios)")
	rootCmd.PersistentFlags().StringVar(&agentURL, "agent-url", "http://localhost:8787",
		"base URL of a remote smartone serve for the http source")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("agent.source", rootCmd.PersistentFlags().Lookup("agent-source"))
	_ = viper.BindPFlag("agent.script", rootCmd.PersistentFlags().Lookup("script"))
	_ = viper.BindPFlag("agent.url", rootCmd.PersistentFlags().Lookup("agent-url"))
}
