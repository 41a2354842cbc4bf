package db

import (
	"regexp"
	"strings"
)

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a lib/pq
// key=value list. It trims quotes and whitespace and, if given key=value
// form, returns it cleaned with sslmode defaulted to disable.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	// key=value list expected; anything else goes to the driver unchanged
	if !kvPairRegex.MatchString(s) {
		return s
	}
	fields := strings.Fields(s)
	cleaned := strings.Join(fields, " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// IsPostgres reports whether the DSN targets postgres rather than the
// on-disk sqlite fallback used in development.
func IsPostgres(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		kvPairRegex.MatchString(lower)
}
