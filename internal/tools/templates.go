package tools

import "github.com/mark3labs/mcp-go/mcp"

func templateTools() []*Descriptor {
	templateID := idArg("template_id", "The template ID")
	sectionID := idArg("section_id", "The section ID")

	return inCategory(CategoryTemplates,
		get("/templates", mcp.NewTool("list_templates",
			mcp.WithDescription("List all report templates"),
		)),
		get("/templates/{template_id}", mcp.NewTool("get_template",
			mcp.WithDescription("Get template details"),
			templateID,
		)),
		post("/templates", argsExcept(), mcp.NewTool("create_template",
			mcp.WithDescription("Create a report template"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Template name")),
			mcp.WithString("ext", mcp.Description("File extension, e.g. 'docx'")),
			mcp.WithString("file", mcp.Description("Template file, base64-encoded")),
		)),
		put("/templates/{template_id}", field("data"), mcp.NewTool("update_template",
			mcp.WithDescription("Update a template"),
			templateID,
			dataArg("template"),
		)),
		del("/templates/{template_id}", mcp.NewTool("delete_template",
			mcp.WithDescription("Delete a template"),
			templateID,
		)),
		get("/templates/{template_id}/sections", mcp.NewTool("list_sections",
			mcp.WithDescription("List the sections of a template"),
			templateID,
		)),
		post("/templates/{template_id}/sections", argsExcept("template_id"), mcp.NewTool("create_section",
			mcp.WithDescription("Create a template section"),
			templateID,
			mcp.WithString("name", mcp.Required(), mcp.Description("Section name")),
			mcp.WithString("field", mcp.Description("Field identifier used in the template")),
		)),
		put("/templates/{template_id}/sections/{section_id}", field("data"), mcp.NewTool("update_section",
			mcp.WithDescription("Update a template section"),
			templateID,
			sectionID,
			dataArg("section"),
		)),
		del("/templates/{template_id}/sections/{section_id}", mcp.NewTool("delete_section",
			mcp.WithDescription("Delete a template section"),
			templateID,
			sectionID,
		)),
		get("/data/custom-fields", mcp.NewTool("get_custom_fields",
			mcp.WithDescription("Get the custom fields configuration"),
		)),
	)
}

func languageTools() []*Descriptor {
	langID := idArg("lang_id", "The language ID")

	return inCategory(CategoryLanguages,
		get("/data/languages", mcp.NewTool("list_languages",
			mcp.WithDescription("List all languages"),
		)),
		post("/data/languages", argsExcept(), mcp.NewTool("create_language",
			mcp.WithDescription("Create a language"),
			mcp.WithString("language", mcp.Required(), mcp.Description("Display name, e.g. 'English'")),
			mcp.WithString("locale", mcp.Required(), mcp.Description("Locale code, e.g. 'en'")),
		)),
		put("/data/languages/{lang_id}", field("data"), mcp.NewTool("update_language",
			mcp.WithDescription("Update a language"),
			langID,
			dataArg("language"),
		)),
		del("/data/languages/{lang_id}", mcp.NewTool("delete_language",
			mcp.WithDescription("Delete a language"),
			langID,
		)),
	)
}
