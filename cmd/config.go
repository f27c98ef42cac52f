package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/config"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the pwndoc-mcp configuration",
	}
	cmd.AddCommand(newConfigShowCmd(global), newConfigPathCmd(global), newConfigInitCmd(global))
	return cmd
}

func newConfigShowCmd(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configFile)
			if err != nil {
				return err
			}
			if global.url != "" {
				cfg.URL = global.url
			}
			data, err := config.Marshal(config.ToFile(cfg.Redacted()), asJSON)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			// Show problems without failing, so a half-written config can be inspected.
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}

func newConfigPathCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, found := config.ResolvePath(global.configFile)
			suffix := ""
			if !found {
				suffix = " (not found)"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", path, suffix)
			return err
		},
	}
}

type initOptions struct {
	username string
	password string
	token    string
	force    bool
}

func newConfigInitCmd(global *globalOptions) *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new config file",
		Long: `Write a config file with default settings and the given server and
credentials. The file is created with owner-only permissions. Use .json
as the extension for a JSON file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(global, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "PwnDoc username")
	cmd.Flags().StringVar(&opts.password, "password", "", "PwnDoc password")
	cmd.Flags().StringVar(&opts.token, "token", "", "Static PwnDoc JWT, used when no username/password is set")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")
	return cmd
}

var errConfigExists = errors.New("config file already exists (use --force to overwrite)")

func runConfigInit(global *globalOptions, opts initOptions, out io.Writer) error {
	path, found := config.ResolvePath(global.configFile)
	if found && !opts.force {
		return fmt.Errorf("%s: %w", path, errConfigExists)
	}

	cfg := config.DefaultConfig()
	cfg.URL = global.url
	cfg.Username = opts.username
	cfg.Password = opts.password
	cfg.Token = opts.token
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintf(out, "Wrote %s\n", abs)
	if strings.TrimSpace(os.Getenv("PWNDOC_URL")) != "" {
		fmt.Fprintln(out, "Note: PWNDOC_* environment variables override values in this file.")
	}
	return nil
}
