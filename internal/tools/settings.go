package tools

import "github.com/mark3labs/mcp-go/mcp"

func settingsTools() []*Descriptor {
	return inCategory(CategorySettings,
		get("/settings", mcp.NewTool("get_settings",
			mcp.WithDescription("Get system settings"),
		)),
		put("/settings", field("data"), mcp.NewTool("update_settings",
			mcp.WithDescription("Update system settings"),
			dataArg("settings"),
		)),
		get("/data/reviews", mcp.NewTool("get_reviews",
			mcp.WithDescription("Get the review configuration"),
		)),
		get("/audits/{audit_id}/reviews/export", mcp.NewTool("export_reviews",
			mcp.WithDescription("Export the reviews of an audit"),
			idArg("audit_id", "The audit ID"),
		)),
	)
}

func imageTools() []*Descriptor {
	imageID := idArg("image_id", "The image ID")

	return inCategory(CategoryImages,
		post("/images", renamed(map[string]string{"audit_id": "auditId", "filename": "name", "image_base64": "value"}),
			mcp.NewTool("upload_image",
				mcp.WithDescription("Upload an image, optionally attached to an audit"),
				mcp.WithString("image_base64", mcp.Required(),
					mcp.Description("Image content as a base64 data URI, e.g. 'data:image/png;base64,...'")),
				mcp.WithString("filename", mcp.Required(), mcp.Description("Image name")),
				mcp.WithString("audit_id", mcp.Description("Audit the image belongs to")),
			)),
		get("/images/{image_id}", mcp.NewTool("get_image",
			mcp.WithDescription("Get image metadata"),
			imageID,
		)),
		aggregated(download("download_image", "/images/download/{image_id}"), mcp.NewTool("download_image",
			mcp.WithDescription("Download image data, returned base64-encoded"),
			imageID,
		)),
		del("/images/{image_id}", mcp.NewTool("delete_image",
			mcp.WithDescription("Delete an image"),
			imageID,
		)),
	)
}

func dataTools() []*Descriptor {
	return inCategory(CategoryData,
		aggregated(statistics, mcp.NewTool("get_statistics",
			mcp.WithDescription("Get object counts across audits, clients, companies, vulnerability templates and users"),
		)),
		get("/data/cvss-scores", mcp.NewTool("get_cvss_scores",
			mcp.WithDescription("Get the CVSS score distribution"),
		)),
		get("/data/backup", mcp.NewTool("backup_data",
			mcp.WithDescription("Create a system backup"),
		)),
		post("/data/restore", field("backup_data"), mcp.NewTool("restore_data",
			mcp.WithDescription("Restore from a backup"),
			mcp.WithObject("backup_data", mcp.Required(), mcp.Description("Backup content")),
		)),
		get("/data/export", mcp.NewTool("export_data",
			mcp.WithDescription("Export all data"),
		)),
		post("/data/import", field("data"), mcp.NewTool("import_data",
			mcp.WithDescription("Import data"),
			mcp.WithObject("data", mcp.Required(), mcp.Description("Data to import")),
		)),
	)
}
