package tools

import "github.com/mark3labs/mcp-go/mcp"

func findingTools() []*Descriptor {
	auditID := idArg("audit_id", "The audit ID")
	findingID := idArg("finding_id", "The finding ID")
	categoryID := idArg("category_id", "The finding category ID")

	return inCategory(CategoryFindings,
		get("/audits/{audit_id}/findings", mcp.NewTool("list_findings",
			mcp.WithDescription("List findings for an audit"),
			auditID,
		)),
		get("/audits/{audit_id}/findings/{finding_id}", mcp.NewTool("get_finding",
			mcp.WithDescription("Get finding details"),
			auditID,
			findingID,
		)),
		post("/audits/{audit_id}/findings", argsExcept("audit_id"), mcp.NewTool("create_finding",
			mcp.WithDescription("Create a new finding in an audit. Extra arguments are sent as finding fields"),
			auditID,
			mcp.WithString("title", mcp.Required(), mcp.Description("Finding title")),
			mcp.WithString("vulnType", mcp.Description("Vulnerability type")),
			mcp.WithString("description", mcp.Description("Finding description (HTML)")),
			mcp.WithString("observation", mcp.Description("Observation (HTML)")),
			mcp.WithString("remediation", mcp.Description("Remediation (HTML)")),
			mcp.WithString("cvssv3", mcp.Description("CVSS v3 vector string")),
			mcp.WithString("category", mcp.Description("Finding category")),
		)),
		put("/audits/{audit_id}/findings/{finding_id}", field("data"), mcp.NewTool("update_finding",
			mcp.WithDescription("Update an existing finding"),
			auditID,
			findingID,
			dataArg("finding"),
		)),
		del("/audits/{audit_id}/findings/{finding_id}", mcp.NewTool("delete_finding",
			mcp.WithDescription("Delete a finding"),
			auditID,
			findingID,
		)),
		aggregated(searchFindings, mcp.NewTool("search_findings",
			mcp.WithDescription("Search findings across all audits by title, category, severity or status"),
			mcp.WithString("title", mcp.Description("Case-insensitive substring of the finding title")),
			mcp.WithString("category", mcp.Description("Exact category name (case-insensitive)")),
			mcp.WithString("severity",
				mcp.Description("Severity derived from the CVSS score"),
				mcp.Enum(SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow)),
			mcp.WithString("status", mcp.Description("Finding status")),
		)),
		aggregated(findingsWithContext, mcp.NewTool("get_all_findings_with_context",
			mcp.WithDescription("Get all findings from all audits with their audit context (company, client, dates, scope)"),
			mcp.WithBoolean("include_failed", mcp.Description("Include findings in the 'Failed' category (default: false)")),
			mcp.WithArray("exclude_categories", mcp.WithStringItems(), mcp.Description("Categories to exclude")),
		)),
		get("/data/vulnerability-categories", mcp.NewTool("get_finding_categories",
			mcp.WithDescription("Get finding categories"),
		)),
		post("/data/vulnerability-categories", argsExcept(), mcp.NewTool("create_finding_category",
			mcp.WithDescription("Create a finding category"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Category name")),
		)),
		put("/data/vulnerability-categories/{category_id}", field("data"), mcp.NewTool("update_finding_category",
			mcp.WithDescription("Update a finding category"),
			categoryID,
			dataArg("category"),
		)),
		del("/data/vulnerability-categories/{category_id}", mcp.NewTool("delete_finding_category",
			mcp.WithDescription("Delete a finding category"),
			categoryID,
		)),
		post("/audits/{audit_id}/findings/import", field("data"), mcp.NewTool("import_findings",
			mcp.WithDescription("Import findings into an audit"),
			auditID,
			mcp.WithArray("data", mcp.Required(), mcp.Items(map[string]any{"type": "object"}),
				mcp.Description("Findings to import")),
		)),
		get("/audits/{audit_id}/findings/export", mcp.NewTool("export_findings",
			mcp.WithDescription("Export the findings of an audit"),
			auditID,
		)),
	)
}
