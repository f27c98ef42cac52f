package pwndoc

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not found",
			err:  &NotFoundError{Method: "GET", Path: "/audits/x"},
			want: "resource not found: /audits/x",
		},
		{
			name: "authentication with status",
			err:  &AuthenticationError{Op: "login", Status: 401, Err: errInvalidCredentials},
			want: "authentication failed (login, HTTP 401): invalid credentials",
		},
		{
			name: "authentication without status",
			err:  &AuthenticationError{Op: "login", Err: errNoCredentials},
			want: "authentication failed (login): no credentials configured (provide username/password or token)",
		},
		{
			name: "rate limit",
			err:  &RateLimitError{Method: "GET", Path: "/audits", Attempts: 3, RetryAfter: 2 * time.Second},
			want: "rate limited by server: GET /audits failed after 3 attempts, retry after 2s",
		},
		{
			name: "api error",
			err:  &APIError{Method: "POST", Path: "/audits", Status: 400, Detail: "bad"},
			want: "API error: HTTP 400 on POST /audits: bad",
		},
		{
			name: "api error without detail",
			err:  &APIError{Method: "POST", Path: "/audits", Status: 502},
			want: "API error: HTTP 502 on POST /audits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	wrappedNF := fmt.Errorf("tool failed: %w", &NotFoundError{Path: "/x"})
	assert.True(t, IsNotFound(wrappedNF))
	assert.False(t, IsAuthentication(wrappedNF))

	wrappedAuth := fmt.Errorf("tool failed: %w", &AuthenticationError{Op: "login", Err: errors.New("x")})
	assert.True(t, IsAuthentication(wrappedAuth))
	assert.False(t, IsNotFound(wrappedAuth))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	assert.ErrorIs(t, &TransportError{Err: cause}, cause)
	assert.ErrorIs(t, &SerializationError{Err: cause}, cause)
	assert.ErrorIs(t, &AuthenticationError{Err: cause}, cause)
}
