package tools

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// expandPath substitutes {argument} placeholders with path-escaped values.
func expandPath(tool, template string, args map[string]any) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("malformed path template %q", template)
		}
		name := rest[open+1 : open+end]

		value, err := identifier(tool, name, args)
		if err != nil {
			return "", err
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}

// identifier returns a required, non-empty ID argument. Integral numbers
// are accepted since hosts sometimes send numeric IDs.
func identifier(tool, name string, args map[string]any) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", &ArgumentError{Tool: tool, Argument: name, Reason: "is required"}
	}
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", &ArgumentError{Tool: tool, Argument: name, Reason: "cannot be empty"}
		}
		return id, nil
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10), nil
		}
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	}
	return "", &ArgumentError{Tool: tool, Argument: name, Reason: "must be a string"}
}

// stringArg returns args[name] when it is a non-empty string, else def.
func stringArg(args map[string]any, name, def string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return def
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// stringList accepts a single string or an array of strings.
func stringList(tool, name string, v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case string:
		if list == "" {
			return nil, nil
		}
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &ArgumentError{Tool: tool, Argument: fmt.Sprintf("%s[%d]", name, i), Reason: "must be a string"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ArgumentError{Tool: tool, Argument: name, Reason: "must be a string or array of strings"}
	}
}

// argsExcept sends the arguments as the body, minus the named keys
// (usually the ones already consumed by the path).
func argsExcept(keys ...string) BodyFunc {
	return func(_ string, args map[string]any) (any, error) {
		body := make(map[string]any, len(args))
		for k, v := range args {
			body[k] = v
		}
		for _, k := range keys {
			delete(body, k)
		}
		return body, nil
	}
}

// field sends a single required argument as the whole body.
func field(name string) BodyFunc {
	return func(tool string, args map[string]any) (any, error) {
		v, ok := args[name]
		if !ok || v == nil {
			return nil, &ArgumentError{Tool: tool, Argument: name, Reason: "is required"}
		}
		return v, nil
	}
}

// renamed maps argument names onto the API's field names. Absent
// arguments are omitted.
func renamed(mapping map[string]string) BodyFunc {
	return func(_ string, args map[string]any) (any, error) {
		body := make(map[string]any, len(mapping))
		for from, to := range mapping {
			if v, ok := args[from]; ok {
				body[to] = v
			}
		}
		return body, nil
	}
}
