package recipecard

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/recipe"
)

// Line is one row of the ingredient table.
type Line struct {
	Name    string
	Grams   float64
	Percent float64
}

// Lines lists the ingredients with their baker's percentage, relative to the
// total flour including the flour held in the starter.
func Lines(s recipe.State) []Line {
	pct := s.StarterHydration.Value
	totalFlour := recipe.Salt(s, pct) / recipe.SaltRatio

	share := func(v float64) float64 {
		if totalFlour == 0 {
			return 0
		}
		return v / totalFlour * 100
	}

	salt := recipe.DisplaySalt(s)
	return []Line{
		{Name: "Flour", Grams: s.Flour.Value, Percent: share(s.Flour.Value)},
		{Name: "Water", Grams: s.Water.Value, Percent: share(s.Water.Value)},
		{Name: "Starter", Grams: s.Starter.Value, Percent: share(s.Starter.Value)},
		{Name: "Salt", Grams: salt, Percent: share(salt)},
	}
}

// Render draws an A5 recipe card for s.
func Render(name string, s recipe.State, generatedAt time.Time) ([]byte, error) {
	if err := recipe.CheckFinite(s); err != nil {
		return nil, fmt.Errorf("recipecard: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Sourdough"
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(name, true)
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(name))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.Cell(0, 5, generatedAt.UTC().Format("2006-01-02"))
	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 228, 215)
	pdf.CellFormat(60, 8, "Ingredient", "1", 0, "L", true, 0, "")
	pdf.CellFormat(32, 8, "Grams", "1", 0, "R", true, 0, "")
	pdf.CellFormat(32, 8, "Baker's %", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range Lines(s) {
		pdf.CellFormat(60, 7, l.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 7, fmt.Sprintf("%.0f g", l.Grams), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 7, fmt.Sprintf("%.1f %%", l.Percent), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	summary := []struct {
		label string
		value string
	}{
		{"Hydration", fmt.Sprintf("%.0f %%", s.Hydration.Value)},
		{"Starter hydration", fmt.Sprintf("%.0f %%", s.StarterHydration.Value)},
		{"Total dough", fmt.Sprintf("%.0f g", s.TotalDough.Value)},
	}
	for _, row := range summary {
		pdf.CellFormat(60, 6, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(64, 6, row.value, "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "recipecard: render")
	}
	return buf.Bytes(), nil
}
