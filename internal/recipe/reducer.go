package recipe

// ToggleConst flips the constant flag of one of the four primary fields and
// updates the enable flags that depend on it. Other field names are ignored.
func ToggleConst(s State, name FieldName) State {
	if !name.isPrimary() {
		return s
	}

	f := s.Field(name)
	wasConst := f.Constant

	next := s.Counter + 1
	if wasConst {
		next = s.Counter - 1
	}

	for _, p := range primaryFields {
		pf := s.Field(p)
		if next < MaxConstant {
			pf.DisableConst = false
			pf.DisableNumber = false
			continue
		}
		if p != name && !pf.Constant {
			pf.DisableConst = true
			pf.DisableNumber = true
		}
	}

	f.Constant = !wasConst
	s.Counter = next

	switch {
	case name.IsIngredient():
		if !wasConst {
			s.TotalDough.DisableNumber = true
		} else if !s.anyIngredientConstant() {
			s.TotalDough.DisableNumber = false
		}
	case name == FieldHydration:
		s.StarterHydration.DisableNumber = !wasConst
	}

	return s
}

// SetFieldValue sets a raw value. With nothing held constant an ingredient
// edit scales the other two by their dividents; otherwise the first free
// other ingredient is solved for. Hydration and total dough are recomputed.
func SetFieldValue(s State, name FieldName, value float64) State {
	f := s.Field(name)
	if f == nil {
		return s
	}
	f.Value = value
	sh := s.StarterHydration.Value

	if s.Counter == 0 && name.IsIngredient() {
		changed := s.Ingredient(Kind(name))
		factor := value / changed.Divident
		for _, k := range kinds {
			if k == changed.Kind {
				continue
			}
			ing := s.Ingredient(k)
			ing.Value = round(ing.Divident * factor)
		}
	} else {
		for _, k := range kinds {
			ing := s.Ingredient(k)
			if FieldName(k) == name || ing.Constant {
				continue
			}
			solveAndRebase(&s, k, sh)
			break
		}
	}

	s.Hydration.Value = round(Hydration(s, sh))
	s.TotalDough.Value = round(TotalDough(s, sh))
	return s
}

// SetHydration sets the target hydration, solves the first free ingredient
// and recomputes total dough.
func SetHydration(s State, pct float64) State {
	sh := s.StarterHydration.Value
	s.Hydration.Value = pct

	for _, k := range kinds {
		if s.Ingredient(k).Constant {
			continue
		}
		solveAndRebase(&s, k, sh)
		break
	}

	s.TotalDough.Value = round(TotalDough(s, sh))
	return s
}

// SetTotalDough redistributes total over the ingredients by divident,
// leaving room for the salt share. Dividents are unchanged.
func SetTotalDough(s State, total float64) State {
	cFlour, _ := starterSplit(s.StarterHydration.Value)
	s.TotalDough.Value = total

	saltDiv := SaltRatio * (s.Flour.Divident + s.Starter.Divident*cFlour)
	totalDiv := saltDiv + s.Flour.Divident + s.Water.Divident + s.Starter.Divident
	factor := total / totalDiv

	for _, k := range kinds {
		ing := s.Ingredient(k)
		ing.Value = round(ing.Divident * factor)
	}

	s.Hydration.Value = round(Hydration(s, s.StarterHydration.Value))
	return s
}

// SetStarterHydration changes the starter hydration and recomputes
// hydration and total dough from the unchanged masses.
func SetStarterHydration(s State, pct float64) State {
	s.StarterHydration.Value = pct
	s.Hydration.Value = round(Hydration(s, pct))
	s.TotalDough.Value = round(TotalDough(s, pct))
	return s
}

// solveAndRebase solves ingredient k and moves its divident so that
// value/divident stays what it was before the solve.
func solveAndRebase(s *State, k Kind, starterHydrationPct float64) {
	ing := s.Ingredient(k)
	factor := ing.Value / ing.Divident
	v := round(Solve(k, *s, starterHydrationPct))
	ing.Value = v
	ing.Divident = v / factor
}
