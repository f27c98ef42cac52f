package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

func newQueryCmd(global *globalOptions) *cobra.Command {
	var params string

	cmd := &cobra.Command{
		Use:   "query <tool>",
		Short: "Run a single tool and print its result",
		Long: `Run one MCP tool directly, without an MCP client, and print the JSON
result. Arguments are passed as a JSON object with --params.

Example:
  pwndoc-mcp query get_audit --params '{"audit_id": "64f0c2..."}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), global, args[0], params, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&params, "params", "p", "{}", "Tool arguments as a JSON object")
	return cmd
}

var errToolFailed = errors.New("tool call failed")

func runQuery(ctx context.Context, global *globalOptions, tool, params string, out io.Writer) error {
	args := map[string]any{}
	if err := json.Unmarshal([]byte(params), &args); err != nil {
		return fmt.Errorf("invalid --params: must be a JSON object: %w", err)
	}

	rt, err := newApp(ctx, global, false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	result := rt.sc.CallTool(ctx, tool, args)
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			fmt.Fprintln(out, text.Text)
		}
	}
	if result.IsError {
		return errToolFailed
	}
	return nil
}
