package recipe

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the payload layout written by ToSnapshot.
const SnapshotVersion = 1

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Version int   `json:"version"`
	Payload State `json:"payload"`
}

// LoadResult tells a successful restore apart from a fallback to defaults.
type LoadResult struct {
	State  State  `json:"state"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func ToSnapshot(s State) Snapshot {
	return Snapshot{Version: SnapshotVersion, Payload: s}
}

// FromSnapshot validates a decoded snapshot. Any mismatch yields the
// default state with OK=false and a reason.
func FromSnapshot(snap Snapshot) LoadResult {
	if snap.Version != SnapshotVersion {
		return fallback(fmt.Sprintf("unsupported snapshot version %d", snap.Version))
	}

	s := snap.Payload
	for _, k := range kinds {
		ing := s.Ingredient(k)
		switch ing.Kind {
		case "":
			ing.Kind = k
		case k:
		default:
			return fallback(fmt.Sprintf("ingredient %s has kind %q", k, ing.Kind))
		}
	}
	if err := CheckFinite(s); err != nil {
		return fallback(err.Error())
	}
	if s.Counter < 0 || s.Counter > len(primaryFields) {
		return fallback(fmt.Sprintf("counter %d out of range", s.Counter))
	}

	return LoadResult{State: s, OK: true}
}

var requiredPayloadKeys = []string{
	string(FieldFlour), string(FieldWater), string(FieldStarter),
	string(FieldHydration), string(FieldTotalDough), string(FieldStarterHydration),
	"counter",
}

var requiredFieldKeys = []string{"value", "min", "unit", "constant", "disableConst", "disableNumber"}

// DecodeSnapshot parses raw snapshot JSON and checks that every field of
// the payload is present before validating it with FromSnapshot.
func DecodeSnapshot(data []byte) LoadResult {
	var envelope struct {
		Version *int                       `json:"version"`
		Payload map[string]json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fallback("malformed snapshot: " + err.Error())
	}
	if envelope.Version == nil {
		return fallback("snapshot version missing")
	}
	if *envelope.Version != SnapshotVersion {
		return fallback(fmt.Sprintf("unsupported snapshot version %d", *envelope.Version))
	}
	if envelope.Payload == nil {
		return fallback("snapshot payload missing")
	}

	for _, key := range requiredPayloadKeys {
		raw, ok := envelope.Payload[key]
		if !ok {
			return fallback("payload field missing: " + key)
		}
		if key == "counter" {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fallback(fmt.Sprintf("payload field %s: %v", key, err))
		}
		for _, fk := range requiredFieldKeys {
			if _, ok := fields[fk]; !ok {
				return fallback(fmt.Sprintf("payload field %s.%s missing", key, fk))
			}
		}
		if FieldName(key).IsIngredient() {
			if _, ok := fields["divident"]; !ok {
				return fallback(fmt.Sprintf("payload field %s.divident missing", key))
			}
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fallback("malformed snapshot: " + err.Error())
	}
	return FromSnapshot(snap)
}

func fallback(reason string) LoadResult {
	return LoadResult{State: NewState(), OK: false, Reason: reason}
}
