package postgres

import "strings"

// orderClause maps validated API ordering terms ("-" prefix = descending)
// onto a SQL ORDER BY list through a field→column whitelist. Terms outside
// the whitelist are skipped; the fallback applies when nothing survives. An
// id tiebreak keeps pagination stable across equal sort keys.
func orderClause(terms []string, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(terms)+1)
	for _, term := range terms {
		desc := strings.HasPrefix(term, "-")
		col, ok := columns[strings.TrimPrefix(term, "-")]
		if !ok {
			continue
		}
		if desc {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	if len(parts) == 0 {
		return fallback
	}
	parts = append(parts, "id")
	return strings.Join(parts, ", ")
}
