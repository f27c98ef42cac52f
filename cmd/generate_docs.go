package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The documentation is built from the tool catalog itself, so it always
matches what the server publishes in tools/list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown := generateToolsMarkdown(tools.NewCatalog())
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func generateToolsMarkdown(catalog *tools.Catalog) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists every tool available when running pwndoc-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Descriptors arrive grouped by category in display order.
	var categories []string
	byCategory := map[string][]*tools.Descriptor{}
	for _, d := range catalog.Descriptors() {
		if _, seen := byCategory[d.Category]; !seen {
			categories = append(categories, d.Category)
		}
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", categoryTitle(category), category)
	}
	sb.WriteString("\n")

	for _, category := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", categoryTitle(category))
		for _, d := range byCategory[category] {
			sb.WriteString(generateToolMarkdown(d))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func categoryTitle(category string) string {
	if category == "" {
		return "Other"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

func generateToolMarkdown(d *tools.Descriptor) string {
	var sb strings.Builder
	tool := d.Tool

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}
	if !d.Aggregated() {
		fmt.Fprintf(&sb, "`%s %s`\n\n", d.Method, d.Path)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	propNames := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		propNames = append(propNames, name)
	}
	slices.Sort(propNames)

	for _, name := range propNames {
		propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		requiredStr := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}
		fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

