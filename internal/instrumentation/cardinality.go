package instrumentation

import (
	"strconv"
	"strings"
)

// Cardinality helpers keep metric labels bounded. PwnDoc paths embed
// MongoDB object ids and raw status codes are more detail than dashboards need.

// StatusClass maps an HTTP status code to its class ("2xx", "4xx", ...).
// Zero means no response was received and maps to "none".
func StatusClass(code int) string {
	if code <= 0 {
		return "none"
	}
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

// RouteTemplate replaces identifier-like path segments with ":id".
//
//	RouteTemplate("/audits/5f1e0a9b8c7d6e5f4a3b2c1d/findings") // "/audits/:id/findings"
//	RouteTemplate("/users/me")                                  // "/users/me"
func RouteTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func looksLikeID(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	// MongoDB ObjectIDs and UUIDs.
	if len(seg) < 16 {
		return false
	}
	digits := 0
	for _, r := range seg {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
