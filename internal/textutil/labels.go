package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeLabel folds a species label to title case with single spaces, so
// "great  egret", "GREAT_EGRET" and "Great Egret" group together.
func NormalizeLabel(label string) string {
	label = strings.ReplaceAll(label, "_", " ")
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return ""
	}
	return cases.Title(language.English).String(label)
}
