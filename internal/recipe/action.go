package recipe

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNonFinite     = errors.New("non-finite value")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownField  = errors.New("unknown field")
)

// ActionType tags an Action.
type ActionType string

const (
	ActionToggleConst         ActionType = "toggleConst"
	ActionSetField            ActionType = "setField"
	ActionSetHydration        ActionType = "setHydration"
	ActionSetTotalDough       ActionType = "setTotalDough"
	ActionSetStarterHydration ActionType = "setStarterHydration"
	ActionReset               ActionType = "reset"
)

// Action is one user edit. Field is used by toggleConst and setField,
// Value by every set* action.
type Action struct {
	Type  ActionType `json:"type"`
	Field FieldName  `json:"field,omitempty"`
	Value float64    `json:"value"`
}

// Apply runs a single action. When the result would store NaN or an
// infinity the previous state is returned together with an error wrapping
// ErrNonFinite, so callers can decline the update.
func Apply(s State, a Action) (State, error) {
	var next State
	switch a.Type {
	case ActionToggleConst:
		if !a.Field.isPrimary() {
			return s, fmt.Errorf("%w: %q cannot be held constant", ErrUnknownField, a.Field)
		}
		next = ToggleConst(s, a.Field)
	case ActionSetField:
		if _, ok := ParseFieldName(string(a.Field)); !ok {
			return s, fmt.Errorf("%w: %q", ErrUnknownField, a.Field)
		}
		next = SetFieldValue(s, a.Field, a.Value)
	case ActionSetHydration:
		next = SetHydration(s, a.Value)
	case ActionSetTotalDough:
		next = SetTotalDough(s, a.Value)
	case ActionSetStarterHydration:
		next = SetStarterHydration(s, a.Value)
	case ActionReset:
		next = NewState()
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}

	if err := CheckFinite(next); err != nil {
		return s, err
	}
	return next, nil
}

// CheckFinite returns an error naming the first stored value that is NaN or infinite.
func CheckFinite(s State) error {
	for _, name := range []FieldName{FieldFlour, FieldWater, FieldStarter, FieldHydration, FieldTotalDough, FieldStarterHydration} {
		if v := s.Field(name).Value; !finite(v) {
			return fmt.Errorf("%w: %s=%v", ErrNonFinite, name, v)
		}
	}
	for _, k := range kinds {
		if d := s.Ingredient(k).Divident; !finite(d) {
			return fmt.Errorf("%w: %s divident=%v", ErrNonFinite, k, d)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
