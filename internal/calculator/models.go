package calculator

import (
	"time"

	"github.com/fdg312/sourdough-hub/internal/recipe"
)

type StateResponse struct {
	State recipe.State `json:"state"`
	Salt  float64      `json:"salt"`
}

// ApplyRequest carries the client's current state; a missing state means the defaults.
type ApplyRequest struct {
	State  *recipe.State `json:"state"`
	Action recipe.Action `json:"action"`
}

type SaveRequest struct {
	Name      string       `json:"name"`
	State     recipe.State `json:"state"`
	Overwrite bool         `json:"overwrite"`
}

type OverwriteRequest struct {
	State recipe.State `json:"state"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type SaveDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListSavesResponse struct {
	Saves                   []SaveDTO `json:"saves"`
	RecoveredFromCorruption bool      `json:"recoveredFromCorruption"`
}

// LoadedSaveResponse reports whether the stored snapshot was usable; when
// Loaded is false State holds the defaults and Reason says why.
type LoadedSaveResponse struct {
	SaveDTO
	State  recipe.State `json:"state"`
	Salt   float64      `json:"salt"`
	Loaded bool         `json:"loaded"`
	Reason string       `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
