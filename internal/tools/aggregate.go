package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Severity levels accepted by search_findings, derived from CVSS v3 scores.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// fanOut bounds concurrent API calls made by one aggregated tool. Every
// call still passes through the client's rate limiter.
const fanOut = 4

const failedCategory = "Failed"

type object = map[string]any

// listData fetches a {"datas": [...]} list. Non-object entries are skipped.
func listData(ctx context.Context, exec Executor, path string) ([]object, error) {
	raw, err := exec.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Datas []json.RawMessage `json:"datas"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	out := make([]object, 0, len(envelope.Datas))
	for _, item := range envelope.Datas {
		var obj object
		if json.Unmarshal(item, &obj) == nil && obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// objectData fetches a {"datas": {...}} object.
func objectData(ctx context.Context, exec Executor, path string) (object, error) {
	raw, err := exec.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Datas object `json:"datas"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if envelope.Datas == nil {
		return object{}, nil
	}
	return envelope.Datas, nil
}

func auditPath(audit object, suffix string) (string, bool) {
	id, _ := audit["_id"].(string)
	if id == "" {
		return "", false
	}
	return "/audits/" + url.PathEscape(id) + suffix, true
}

// findingsPerAudit fetches the findings of every audit, bounded by fanOut.
// Result slots line up with audits.
func findingsPerAudit(ctx context.Context, exec Executor, audits []object) ([][]object, error) {
	out := make([][]object, len(audits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, audit := range audits {
		path, ok := auditPath(audit, "/findings")
		if !ok {
			continue
		}
		g.Go(func() error {
			findings, err := listData(gctx, exec, path)
			if err != nil {
				return err
			}
			out[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func searchFindings(ctx context.Context, exec Executor, args map[string]any) (any, error) {
	title := strings.ToLower(stringArg(args, "title", ""))
	category := stringArg(args, "category", "")
	severity := stringArg(args, "severity", "")
	status := stringArg(args, "status", "")

	audits, err := listData(ctx, exec, "/audits")
	if err != nil {
		return nil, err
	}
	perAudit, err := findingsPerAudit(ctx, exec, audits)
	if err != nil {
		return nil, err
	}

	results := []object{}
	for i, audit := range audits {
		for _, f := range perAudit[i] {
			if title != "" && !strings.Contains(strings.ToLower(str(f["title"])), title) {
				continue
			}
			if category != "" && !strings.EqualFold(str(f["category"]), category) {
				continue
			}
			if severity != "" && !strings.EqualFold(Severity(cvssScore(f)), severity) {
				continue
			}
			if status != "" && !strings.EqualFold(str(f["status"]), status) {
				continue
			}
			f["_audit_id"] = audit["_id"]
			f["_audit_name"] = str(audit["name"])
			results = append(results, f)
		}
	}
	return results, nil
}

func findingsWithContext(ctx context.Context, exec Executor, args map[string]any) (any, error) {
	excluded, err := stringList("get_all_findings_with_context", "exclude_categories", args["exclude_categories"])
	if err != nil {
		return nil, err
	}
	if !boolArg(args, "include_failed") {
		excluded = append(excluded, failedCategory)
	}
	skip := make(map[string]bool, len(excluded))
	for _, c := range excluded {
		skip[c] = true
	}

	audits, err := listData(ctx, exec, "/audits")
	if err != nil {
		return nil, err
	}

	details := make([]object, len(audits))
	findings := make([][]object, len(audits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, audit := range audits {
		detailPath, ok := auditPath(audit, "")
		if !ok {
			continue
		}
		g.Go(func() error {
			detail, err := objectData(gctx, exec, detailPath)
			if err != nil {
				return err
			}
			list, err := listData(gctx, exec, detailPath+"/findings")
			if err != nil {
				return err
			}
			details[i], findings[i] = detail, list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := []object{}
	for i, audit := range audits {
		if details[i] == nil {
			continue
		}
		auditContext := object{
			"_id":        audit["_id"],
			"name":       audit["name"],
			"company":    nested(details[i], "company", "name"),
			"client":     nested(details[i], "client", "email"),
			"date_start": details[i]["date_start"],
			"date_end":   details[i]["date_end"],
			"scope":      details[i]["scope"],
		}
		if auditContext["scope"] == nil {
			auditContext["scope"] = []any{}
		}
		for _, f := range findings[i] {
			if skip[str(f["category"])] {
				continue
			}
			f["audit"] = auditContext
			results = append(results, f)
		}
	}
	return results, nil
}

// statistics counts the main PwnDoc collections concurrently.
func statistics(ctx context.Context, exec Executor, _ map[string]any) (any, error) {
	collections := map[string]string{
		"audits":                  "/audits",
		"clients":                 "/clients",
		"companies":               "/companies",
		"vulnerability_templates": "/vulnerabilities",
		"users":                   "/users",
	}

	var mu sync.Mutex
	counts := make(map[string]int, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for key, path := range collections {
		g.Go(func() error {
			list, err := listData(gctx, exec, path)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[key] = len(list)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Severity maps a CVSS v3 base score onto its qualitative rating. Scores
// of zero or below have no severity.
func Severity(score float64) string {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return ""
	}
}

// cvssScore reads a finding's score from cvssScore, or from a cvssv3
// value of the form "9.8/...". Unparseable values score zero.
func cvssScore(f object) float64 {
	switch v := f["cvssScore"].(type) {
	case float64:
		return v
	case string:
		if s, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return s
		}
	}
	vector := str(f["cvssv3"])
	head, _, _ := strings.Cut(vector, "/")
	s, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
	if err != nil {
		return 0
	}
	return s
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func nested(obj object, key, field string) any {
	inner, ok := obj[key].(map[string]any)
	if !ok {
		return nil
	}
	return inner[field]
}
