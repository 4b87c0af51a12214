package merge

import "strings"

const (
	StatusAiring       = "Currently Airing"
	StatusCompleted    = "Series Completed"
	StatusComingSoon   = "Coming Soon"
	StatusDiscontinued = "Discontinued"
	StatusOnBreak      = "On Break"
	StatusUnknown      = "Unknown"
)

var statusTable = map[string]string{
	"RELEASING":        StatusAiring,
	"FINISHED":         StatusCompleted,
	"NOT_YET_RELEASED": StatusComingSoon,
	"NOT_YET_AIRED":    StatusComingSoon,
	"CANCELLED":        StatusDiscontinued,
	"HIATUS":           StatusOnBreak,
}

// ConvertStatus maps the primary source's lifecycle vocabulary onto the
// output vocabulary. Unrecognized values become StatusUnknown.
func ConvertStatus(raw string) string {
	if v, ok := statusTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return v
	}
	return StatusUnknown
}

// IsActive reports whether a raw status may still change and should be
// refreshed periodically.
func IsActive(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FINISHED", "CANCELLED":
		return false
	default:
		return true
	}
}
