package pwndoc

import (
	"context"
	"encoding/json"
)

// ConnectionStatus summarizes a connectivity check.
type ConnectionStatus struct {
	OK         bool   `json:"ok"`
	URL        string `json:"url"`
	AuthMethod string `json:"auth_method"`
	User       string `json:"user,omitempty"`
	Role       string `json:"role,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TestConnection authenticates and fetches the current user. Failures are
// reported in the returned status; the error is the underlying cause.
func (c *Client) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	status := ConnectionStatus{URL: c.baseURL, AuthMethod: c.session.Mode()}

	raw, err := c.Get(ctx, "/users/me")
	if err != nil {
		status.Error = err.Error()
		return status, err
	}

	var me struct {
		Datas struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"datas"`
	}
	// A body without the expected envelope still proves connectivity.
	_ = json.Unmarshal(raw, &me)

	status.OK = true
	status.User = me.Datas.Username
	if status.User == "" {
		status.User = "unknown"
	}
	status.Role = me.Datas.Role
	return status, nil
}

// Count returns the number of entries in a {"datas": [...]} list response.
// Responses of any other shape count as zero.
func Count(raw json.RawMessage) int {
	var list struct {
		Datas []json.RawMessage `json:"datas"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0
	}
	return len(list.Datas)
}
