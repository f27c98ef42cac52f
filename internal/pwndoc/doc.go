// Package pwndoc is an HTTP client for the PwnDoc REST API.
//
// A Client owns a Session, which logs in and keeps the access token fresh,
// and a RateLimiter, which bounds outbound requests to a sliding window.
// Client.Do runs one logical call through authentication, admission control
// and a retry loop with exponential backoff, and classifies failures into
// the typed errors defined in errors.go.
//
// All methods are safe for concurrent use.
package pwndoc
