package utils

import (
	"encoding/json"
	"strings"
)

// ListToString stores a []string as a JSON array string (portable across SQLite and Postgres).
func ListToString(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(items)
	return string(data)
}

// StringToList converts the stored string back to []string.
func StringToList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		// rows written by hand may hold a plain comma list
		out := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return items
}
