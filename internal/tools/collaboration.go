package tools

import "github.com/mark3labs/mcp-go/mcp"

func collaborationTools() []*Descriptor {
	auditID := idArg("audit_id", "The audit ID")
	findingID := idArg("finding_id", "The finding ID")
	commentID := idArg("comment_id", "The comment ID")
	text := renamed(map[string]string{"text": "text"})

	return inCategory(CategoryCollaboration,
		get("/audits/{audit_id}/findings/{finding_id}/comments", mcp.NewTool("list_comments",
			mcp.WithDescription("List the comments on a finding"),
			auditID,
			findingID,
		)),
		post("/audits/{audit_id}/findings/{finding_id}/comments", text, mcp.NewTool("create_comment",
			mcp.WithDescription("Add a comment to a finding"),
			auditID,
			findingID,
			mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
		)),
		put("/audits/{audit_id}/findings/{finding_id}/comments/{comment_id}", text, mcp.NewTool("update_comment",
			mcp.WithDescription("Update a comment"),
			auditID,
			findingID,
			commentID,
			mcp.WithString("text", mcp.Required(), mcp.Description("New comment text")),
		)),
		del("/audits/{audit_id}/findings/{finding_id}/comments/{comment_id}", mcp.NewTool("delete_comment",
			mcp.WithDescription("Delete a comment"),
			auditID,
			findingID,
			commentID,
		)),
		get("/audits/{audit_id}/history", mcp.NewTool("get_audit_history",
			mcp.WithDescription("Get the change history of an audit"),
			auditID,
		)),
		get("/audits/{audit_id}/findings/{finding_id}/history", mcp.NewTool("get_finding_history",
			mcp.WithDescription("Get the change history of a finding"),
			auditID,
			findingID,
		)),
	)
}
