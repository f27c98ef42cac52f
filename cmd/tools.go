package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/tools"
)

const maxDescriptionWidth = 60

func newToolsCmd() *cobra.Command {
	var (
		category string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderToolsTable(cmd.OutOrStdout(), tools.NewCatalog(), category, markdown)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list tools in this category (e.g. audits, findings)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the table as markdown")
	return cmd
}

func renderToolsTable(out io.Writer, catalog *tools.Catalog, category string, markdown bool) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Tool", "Call", "Description"})

	n := 0
	for _, d := range catalog.Descriptors() {
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		t.AppendRow(table.Row{d.Category, d.Name(), callSummary(d), truncate(d.Tool.Description, maxDescriptionWidth)})
		n++
	}
	if n == 0 {
		return fmt.Errorf("no tools in category %q", category)
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tools", n), "", ""})

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

func callSummary(d *tools.Descriptor) string {
	if d.Aggregated() {
		return "composite"
	}
	return d.Method + " " + d.Path
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
