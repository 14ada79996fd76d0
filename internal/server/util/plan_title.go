package util

import "strings"

const maxTitleLength = 120

// BuildPlanTitle derives a display title from the raw statement. Used as the
// fallback whenever no model is configured to generate one.
func BuildPlanTitle(statement string) string {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return "Untitled plan"
	}

	if len(trimmed) <= maxTitleLength {
		return trimmed
	}

	return strings.TrimSpace(trimmed[:maxTitleLength])
}
