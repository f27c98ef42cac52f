package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the server and the version command.
func SetVersion(v string) {
	version = v
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	url        string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "pwndoc-mcp",
		Short: "MCP server for the PwnDoc pentest reporting API",
		Long: `pwndoc-mcp exposes the PwnDoc REST API to AI assistants as Model Context
Protocol tools: audits, findings, vulnerabilities, clients, users,
templates and more.

It can run as:
  - An MCP server over stdio (default) or HTTP
  - A CLI for checking connectivity and running single tools`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "pwndoc-mcp version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (default: ~/.pwndoc-mcp/config.yaml). Can also use PWNDOC_CONFIG_FILE env var.")
	rootCmd.PersistentFlags().StringVar(&opts.url, "url", "", "PwnDoc server URL. Overrides PWNDOC_URL.")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error. Overrides PWNDOC_LOG_LEVEL.")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json.")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTestCmd(opts),
		newQueryCmd(opts),
		newToolsCmd(),
		newGenerateDocsCmd(),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute is the main entry point for the CLI application. Any error,
// including invalid configuration, exits with status 1.
func Execute() {
	rootCmd := newRootCmd()

	// If no subcommand is provided, run the MCP server
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
