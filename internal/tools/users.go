package tools

import "github.com/mark3labs/mcp-go/mcp"

func userTools() []*Descriptor {
	userID := idArg("user_id", "The user ID")

	return inCategory(CategoryUsers,
		get("/users", mcp.NewTool("list_users",
			mcp.WithDescription("List all users"),
		)),
		get("/users/{user_id}", mcp.NewTool("get_user",
			mcp.WithDescription("Get user details"),
			userID,
		)),
		post("/users", argsExcept(), mcp.NewTool("create_user",
			mcp.WithDescription("Create a user"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Login name")),
			mcp.WithString("password", mcp.Required(), mcp.Description("Initial password")),
			mcp.WithString("firstname", mcp.Description("First name")),
			mcp.WithString("lastname", mcp.Description("Last name")),
			mcp.WithString("email", mcp.Description("Email address")),
			mcp.WithString("role", mcp.Description("Role, e.g. 'user' or 'admin'")),
		)),
		put("/users/{user_id}", field("data"), mcp.NewTool("update_user",
			mcp.WithDescription("Update a user"),
			userID,
			dataArg("user"),
		)),
		del("/users/{user_id}", mcp.NewTool("delete_user",
			mcp.WithDescription("Delete a user"),
			userID,
		)),
		get("/users/me", mcp.NewTool("get_current_user",
			mcp.WithDescription("Get the currently authenticated user"),
		)),
		put("/users/me", field("data"), mcp.NewTool("update_current_user",
			mcp.WithDescription("Update the current user's profile"),
			dataArg("profile"),
		)),
		put("/users/me/password", renamed(map[string]string{"current_password": "currentPassword", "new_password": "newPassword"}),
			mcp.NewTool("change_password",
				mcp.WithDescription("Change the current user's password"),
				mcp.WithString("current_password", mcp.Required(), mcp.Description("Current password")),
				mcp.WithString("new_password", mcp.Required(), mcp.Description("New password")),
			)),
	)
}
