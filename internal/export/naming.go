package export

import (
	"fmt"
	"regexp"
	"strings"
)

// NameParams are the inputs to the deterministic dataset name.
type NameParams struct {
	// Position is the job's 1-based position among all persisted jobs.
	Position int
	JobName  string
	// CollectionName is the cached display name; falls back to the id.
	CollectionName string
	// PrimaryFilter is the job's primary filter value; "all" when empty.
	PrimaryFilter string
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Sanitize reduces a name part to filesystem-safe characters. Runs of unsafe
// characters collapse into a single underscore.
func Sanitize(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_")
}

// DatasetName computes the deterministic output name
// <position>_<job>_<collection>_<primary-filter|all>.
func DatasetName(p NameParams) string {
	filter := Sanitize(p.PrimaryFilter)
	if filter == "" {
		filter = "all"
	}
	return fmt.Sprintf("%02d_%s_%s_%s",
		p.Position,
		Sanitize(p.JobName),
		Sanitize(p.CollectionName),
		filter,
	)
}
