package tools

import "github.com/mark3labs/mcp-go/mcp"

func auditTools() []*Descriptor {
	auditID := idArg("audit_id", "The audit ID")
	typeID := idArg("type_id", "The audit type ID")

	sortFindings := put("/audits/{audit_id}/sortfindings", renamed(map[string]string{"sort_by": "sortBy"}),
		mcp.NewTool("sort_audit_findings",
			mcp.WithDescription("Sort the findings of an audit"),
			auditID,
			mcp.WithString("sort_by", mcp.DefaultString("cvss"),
				mcp.Description("Field to sort by (default: cvss)")),
		))
	sortFindings.Defaults = map[string]any{"sort_by": "cvss"}

	return inCategory(CategoryAudits,
		get("/audits", mcp.NewTool("list_audits",
			mcp.WithDescription("List all audits"),
		)),
		get("/audits/{audit_id}", mcp.NewTool("get_audit",
			mcp.WithDescription("Get audit details by ID, including scope, findings and metadata"),
			auditID,
		)),
		post("/audits", renamed(map[string]string{"name": "name", "language": "language", "audit_type": "auditType"}),
			mcp.NewTool("create_audit",
				mcp.WithDescription("Create a new audit"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Audit name")),
				mcp.WithString("language", mcp.Description("Language code, e.g. 'en'")),
				mcp.WithString("audit_type", mcp.Description("Audit type name")),
			)),
		put("/audits/{audit_id}", field("data"), mcp.NewTool("update_audit",
			mcp.WithDescription("Update an existing audit"),
			auditID,
			dataArg("audit"),
		)),
		del("/audits/{audit_id}", mcp.NewTool("delete_audit",
			mcp.WithDescription("Delete an audit"),
			auditID,
		)),
		get("/data/audit-types", mcp.NewTool("get_audit_types",
			mcp.WithDescription("Get available audit types"),
		)),
		post("/data/audit-types", argsExcept(), mcp.NewTool("create_audit_type",
			mcp.WithDescription("Create a new audit type"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Audit type name")),
		)),
		put("/data/audit-types/{type_id}", field("data"), mcp.NewTool("update_audit_type",
			mcp.WithDescription("Update an audit type"),
			typeID,
			dataArg("audit type"),
		)),
		del("/data/audit-types/{type_id}", mcp.NewTool("delete_audit_type",
			mcp.WithDescription("Delete an audit type"),
			typeID,
		)),
		aggregated(download("generate_audit_report", "/audits/{audit_id}/generate"), mcp.NewTool("generate_audit_report",
			mcp.WithDescription("Generate the report document for an audit. The file is returned base64-encoded"),
			auditID,
		)),
		get("/audits/{audit_id}/network", mcp.NewTool("get_audit_network",
			mcp.WithDescription("Get audit network information"),
			auditID,
		)),
		put("/audits/{audit_id}/network", field("network"), mcp.NewTool("update_audit_network",
			mcp.WithDescription("Update audit network information"),
			auditID,
			mcp.WithObject("network", mcp.Required(), mcp.Description("Network scope data")),
		)),
		sortFindings,
		put("/audits/{audit_id}/sorting", field("sorting"), mcp.NewTool("update_audit_sorting",
			mcp.WithDescription("Update audit sorting preferences"),
			auditID,
			mcp.WithObject("sorting", mcp.Required(), mcp.Description("Sorting options per category")),
		)),
		put("/audits/{audit_id}/movefinding", renamed(map[string]string{"finding_id": "findingId", "position": "position"}),
			mcp.NewTool("move_audit_finding",
				mcp.WithDescription("Move a finding to a new position in the audit"),
				auditID,
				idArg("finding_id", "The finding ID"),
				mcp.WithNumber("position", mcp.Required(), mcp.Description("New zero-based position")),
			)),
	)
}
