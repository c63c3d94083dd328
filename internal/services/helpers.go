package services

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Actor identifies the user on whose behalf an operation runs.
type Actor struct {
	UserID   string
	Username string
	IsStaff  bool
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in
// any of the supported dialects, unlike a backslash under MySQL.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a case-insensitive substring pattern matching query
// literally. Use it with likeCondition.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

// likeCondition renders "LOWER(column) LIKE ? ESCAPE '!'".
func likeCondition(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '!'"
}

func trimmedLen(value string) int {
	return utf8.RuneCountInString(strings.TrimSpace(value))
}

func clampLimit(limit, fallback, maximum int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maximum {
		return maximum
	}
	return limit
}

func stringPtr(value string) *string {
	return &value
}
