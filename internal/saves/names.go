package saves

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName trims surrounding whitespace from a save name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// HasDuplicateName reports whether name matches one of existing, ignoring
// case and surrounding whitespace. Empty names never collide.
func HasDuplicateName(name string, existing []string) bool {
	fold := cases.Fold()
	normalized := fold.String(NormalizeName(name))
	if normalized == "" {
		return false
	}
	for _, e := range existing {
		if fold.String(NormalizeName(e)) == normalized {
			return true
		}
	}
	return false
}

func sameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(NormalizeName(a)) == fold.String(NormalizeName(b))
}

// Availability lists the save actions a client can offer for its inputs.
type Availability struct {
	CanSave      bool `json:"canSave"`
	CanLoad      bool `json:"canLoad"`
	CanOverwrite bool `json:"canOverwrite"`
	CanDelete    bool `json:"canDelete"`
	CanRename    bool `json:"canRename"`
}

func ActionAvailability(saveName, renameName, selectedID string) Availability {
	hasSelection := strings.TrimSpace(selectedID) != ""
	hasRename := strings.TrimSpace(renameName) != ""
	return Availability{
		CanSave:      strings.TrimSpace(saveName) != "",
		CanLoad:      hasSelection,
		CanOverwrite: hasSelection,
		CanDelete:    hasSelection,
		CanRename:    hasSelection && hasRename,
	}
}
