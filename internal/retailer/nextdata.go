package retailer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractPageData returns the decoded __NEXT_DATA__ payload of doc. When the
// page has none and inlineVar is set, it falls back to an inline
// window.<inlineVar> = [...] assignment and returns that array.
func extractPageData(doc *goquery.Document, inlineVar string) (any, bool, error) {
	if raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text()); raw != "" {
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, false, fmt.Errorf("failed to parse __NEXT_DATA__: %w", err)
		}
		return data, true, nil
	}

	if inlineVar == "" {
		return nil, false, fmt.Errorf("__NEXT_DATA__ not found in page")
	}
	re := regexp.MustCompile(`window\.` + regexp.QuoteMeta(inlineVar) + `\s*=\s*(\[[\s\S]*?\]);`)
	var found []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := re.FindStringSubmatch(s.Text()); m != nil {
			found = []byte(m[1])
			return false
		}
		return true
	})
	if found == nil {
		return nil, false, fmt.Errorf("neither __NEXT_DATA__ nor window.%s found in page", inlineVar)
	}
	var items any
	if err := json.Unmarshal(found, &items); err != nil {
		return nil, false, fmt.Errorf("failed to parse window.%s: %w", inlineVar, err)
	}
	return items, false, nil
}

// lookup walks a dotted path through decoded JSON.
func lookup(v any, path string) any {
	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			v = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

// firstPath returns the first non-nil value among paths.
func firstPath(v any, paths []string) any {
	for _, p := range paths {
		if found := lookup(v, p); found != nil {
			return found
		}
	}
	return nil
}

// itemList resolves the first path holding an array and returns its objects.
func itemList(data any, paths []string) []map[string]any {
	for _, p := range paths {
		if list, ok := lookup(data, p).([]any); ok {
			return objects(list)
		}
	}
	return nil
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
