package tools

import "github.com/mark3labs/mcp-go/mcp"

func vulnerabilityTools() []*Descriptor {
	vulnID := idArg("vuln_id", "The vulnerability ID")

	byLocale := get("/vulnerabilities/{locale}", mcp.NewTool("get_vulnerabilities_by_locale",
		mcp.WithDescription("Get vulnerability templates for a locale"),
		mcp.WithString("locale", mcp.DefaultString("en"), mcp.Description("Locale code (default: en)")),
	))
	byLocale.Defaults = map[string]any{"locale": "en"}

	return inCategory(CategoryVulnerabilities,
		get("/vulnerabilities", mcp.NewTool("list_vulnerabilities",
			mcp.WithDescription("List all vulnerability templates"),
		)),
		get("/vulnerabilities/{vuln_id}", mcp.NewTool("get_vulnerability",
			mcp.WithDescription("Get vulnerability details"),
			vulnID,
		)),
		byLocale,
		post("/vulnerabilities", argsExcept(), mcp.NewTool("create_vulnerability",
			mcp.WithDescription("Create a vulnerability template. Extra arguments are sent as template fields"),
			mcp.WithString("title", mcp.Required(), mcp.Description("Vulnerability title")),
		)),
		put("/vulnerabilities/{vuln_id}", field("data"), mcp.NewTool("update_vulnerability",
			mcp.WithDescription("Update a vulnerability template"),
			vulnID,
			dataArg("vulnerability"),
		)),
		del("/vulnerabilities/{vuln_id}", mcp.NewTool("delete_vulnerability",
			mcp.WithDescription("Delete a vulnerability template"),
			vulnID,
		)),
		post("/vulnerabilities/{source_id}/merge/{target_id}", nil, mcp.NewTool("merge_vulnerability",
			mcp.WithDescription("Merge one vulnerability template into another"),
			idArg("source_id", "The vulnerability to merge from"),
			idArg("target_id", "The vulnerability to merge into"),
		)),
		get("/vulnerabilities/{vuln_id}/updates", mcp.NewTool("get_vulnerability_updates",
			mcp.WithDescription("Get pending updates for a vulnerability template"),
			vulnID,
		)),
		post("/vulnerabilities/import", field("data"), mcp.NewTool("import_vulnerabilities",
			mcp.WithDescription("Import vulnerability templates"),
			mcp.WithArray("data", mcp.Required(), mcp.Items(map[string]any{"type": "object"}),
				mcp.Description("Vulnerability templates to import")),
		)),
	)
}
