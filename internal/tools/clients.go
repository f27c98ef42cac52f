package tools

import "github.com/mark3labs/mcp-go/mcp"

func clientTools() []*Descriptor {
	clientID := idArg("client_id", "The client ID")

	return inCategory(CategoryClients,
		get("/clients", mcp.NewTool("list_clients",
			mcp.WithDescription("List all clients"),
		)),
		get("/clients/{client_id}", mcp.NewTool("get_client",
			mcp.WithDescription("Get client details"),
			clientID,
		)),
		post("/clients", argsExcept(), mcp.NewTool("create_client",
			mcp.WithDescription("Create a client contact"),
			mcp.WithString("company", mcp.Required(), mcp.Description("Company name")),
			mcp.WithString("email", mcp.Description("Contact email")),
			mcp.WithString("firstname", mcp.Description("First name")),
			mcp.WithString("lastname", mcp.Description("Last name")),
			mcp.WithString("phone", mcp.Description("Phone number")),
			mcp.WithString("title", mcp.Description("Job title")),
		)),
		put("/clients/{client_id}", field("data"), mcp.NewTool("update_client",
			mcp.WithDescription("Update a client"),
			clientID,
			dataArg("client"),
		)),
		del("/clients/{client_id}", mcp.NewTool("delete_client",
			mcp.WithDescription("Delete a client"),
			clientID,
		)),
		get("/clients/{client_id}/audits", mcp.NewTool("get_client_audits",
			mcp.WithDescription("Get the audits of a client"),
			clientID,
		)),
	)
}

func companyTools() []*Descriptor {
	companyID := idArg("company_id", "The company ID")

	return inCategory(CategoryCompanies,
		get("/companies", mcp.NewTool("list_companies",
			mcp.WithDescription("List all companies"),
		)),
		get("/companies/{company_id}", mcp.NewTool("get_company",
			mcp.WithDescription("Get company details"),
			companyID,
		)),
		post("/companies", argsExcept(), mcp.NewTool("create_company",
			mcp.WithDescription("Create a company"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Company name")),
			mcp.WithString("shortName", mcp.Description("Short name")),
		)),
		put("/companies/{company_id}", field("data"), mcp.NewTool("update_company",
			mcp.WithDescription("Update a company"),
			companyID,
			dataArg("company"),
		)),
		del("/companies/{company_id}", mcp.NewTool("delete_company",
			mcp.WithDescription("Delete a company"),
			companyID,
		)),
		get("/companies/{company_id}/statistics", mcp.NewTool("get_company_stats",
			mcp.WithDescription("Get company statistics"),
			companyID,
		)),
	)
}
