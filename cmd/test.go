package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
)

func newTestCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the connection to the PwnDoc server",
		Long: `Authenticate against PwnDoc, fetch the current user and count the
audits visible to it. Exits non-zero when any step fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd.Context(), global, cmd.OutOrStdout())
		},
	}
}

func runTest(ctx context.Context, global *globalOptions, out io.Writer) error {
	rt, err := newApp(ctx, global, false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	fmt.Fprintf(out, "Testing connection to %s (auth: %s)\n", rt.cfg.BaseURL(), rt.cfg.AuthMethod())

	status, err := rt.client.TestConnection(ctx)
	if err != nil {
		fmt.Fprintf(out, "Connection failed: %s\n", status.Error)
		return err
	}
	fmt.Fprintf(out, "Connected as %s", status.User)
	if status.Role != "" {
		fmt.Fprintf(out, " (%s)", status.Role)
	}
	fmt.Fprintln(out)

	audits, err := rt.client.Get(ctx, "/audits")
	if err != nil {
		return fmt.Errorf("listing audits: %w", err)
	}
	fmt.Fprintf(out, "Audits visible: %d\n", pwndoc.Count(audits))
	return nil
}
