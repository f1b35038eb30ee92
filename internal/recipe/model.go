package recipe

// Kind identifies one of the three ingredients the engine can solve for.
type Kind string

const (
	KindFlour   Kind = "flour"
	KindWater   Kind = "water"
	KindStarter Kind = "starter"
)

// FieldName names a slot of the recipe state.
type FieldName string

const (
	FieldFlour            FieldName = "flour"
	FieldWater            FieldName = "water"
	FieldStarter          FieldName = "starter"
	FieldHydration        FieldName = "hydration"
	FieldTotalDough       FieldName = "totalDough"
	FieldStarterHydration FieldName = "starterHydration"
)

const (
	UnitGrams   = "g"
	UnitPercent = "%"

	// SaltRatio is the fixed baker's percentage of salt over total flour.
	SaltRatio = 0.02

	// MaxConstant is how many of the four primary fields may be held at once.
	MaxConstant = 3
)

// kinds is the solve order used when picking the free ingredient.
var kinds = [...]Kind{KindFlour, KindWater, KindStarter}

// primaryFields are the fields counted by State.Counter.
var primaryFields = [...]FieldName{FieldFlour, FieldWater, FieldStarter, FieldHydration}

// Field is a numeric slot with its UI flags.
// Max is advisory; the engine never clamps Value.
type Field struct {
	Value         float64  `json:"value"`
	Min           float64  `json:"min"`
	Max           *float64 `json:"max,omitempty"`
	Unit          string   `json:"unit"`
	Constant      bool     `json:"constant"`
	DisableConst  bool     `json:"disableConst"`
	DisableNumber bool     `json:"disableNumber"`
}

// Ingredient is a Field with a baseline ratio weight used for proportional scaling.
type Ingredient struct {
	Field
	Kind     Kind    `json:"kind"`
	Divident float64 `json:"divident"`
}

// State is the full calculator state. It is a value type: every operation
// returns a new State and leaves its input untouched.
type State struct {
	Flour            Ingredient `json:"flour"`
	Water            Ingredient `json:"water"`
	Starter          Ingredient `json:"starter"`
	Hydration        Field      `json:"hydration"`
	TotalDough       Field      `json:"totalDough"`
	StarterHydration Field      `json:"starterHydration"`
	Counter          int        `json:"counter"`
}

// NewState returns the default recipe.
func NewState() State {
	return State{
		Flour:            ingredient(KindFlour, 1000, 100),
		Water:            ingredient(KindWater, 670, 67),
		Starter:          ingredient(KindStarter, 250, 25),
		Hydration:        Field{Value: 71, Min: 0, Max: ptr(100), Unit: UnitPercent},
		TotalDough:       Field{Value: 1940, Min: 0, Unit: UnitGrams},
		StarterHydration: Field{Value: 100, Min: 0, Max: ptr(100), Unit: UnitPercent},
	}
}

func ingredient(kind Kind, value, divident float64) Ingredient {
	return Ingredient{
		Field:    Field{Value: value, Min: 0, Unit: UnitGrams},
		Kind:     kind,
		Divident: divident,
	}
}

func ptr(v float64) *float64 { return &v }

// ParseFieldName validates a wire field name.
func ParseFieldName(raw string) (FieldName, bool) {
	switch f := FieldName(raw); f {
	case FieldFlour, FieldWater, FieldStarter, FieldHydration, FieldTotalDough, FieldStarterHydration:
		return f, true
	}
	return "", false
}

// IsIngredient reports whether name is flour, water or starter.
func (name FieldName) IsIngredient() bool {
	return name == FieldFlour || name == FieldWater || name == FieldStarter
}

func (name FieldName) isPrimary() bool {
	return name.IsIngredient() || name == FieldHydration
}

// Ingredient returns a pointer to the ingredient of the given kind.
func (s *State) Ingredient(kind Kind) *Ingredient {
	switch kind {
	case KindFlour:
		return &s.Flour
	case KindWater:
		return &s.Water
	case KindStarter:
		return &s.Starter
	}
	return nil
}

// Field returns a pointer to the named field, or nil for an unknown name.
func (s *State) Field(name FieldName) *Field {
	switch name {
	case FieldFlour:
		return &s.Flour.Field
	case FieldWater:
		return &s.Water.Field
	case FieldStarter:
		return &s.Starter.Field
	case FieldHydration:
		return &s.Hydration
	case FieldTotalDough:
		return &s.TotalDough
	case FieldStarterHydration:
		return &s.StarterHydration
	}
	return nil
}

func (s *State) anyIngredientConstant() bool {
	return s.Flour.Constant || s.Water.Constant || s.Starter.Constant
}
