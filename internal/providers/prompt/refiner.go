// Package prompt provides local prompt refinement applied when a request
// arrives without a client-side refined prompt.
package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studio/internal/domain"
)

// Refiner normalizes user prompts into cleaner model instructions.
type Refiner struct {
	titler cases.Caser
}

func NewRefiner() *Refiner {
	return &Refiner{titler: cases.Title(language.Und)}
}

// modeFlavor adds a short stylistic hint per generation mode.
var modeFlavor = map[domain.Mode]string{
	domain.ModeCreate:      "rendered as a polished studio composition",
	domain.ModeRemix:       "reinterpreted with a fresh creative treatment",
	domain.ModeCamera:      "captured with deliberate photographic framing",
	domain.ModeCrop:        "recomposed around the strongest focal point",
	domain.ModePromptAdapt: "adapted faithfully from the written description",
	domain.ModeLighting:    "relit with cinematic light and shadow",
	domain.ModePose:        "with the subject posed naturally",
	domain.ModeUpscale:     "reproduced at maximum detail and sharpness",
	domain.ModeSketch:      "developed from a rough sketch into a finished scene",
	domain.ModeExternal:    "matched to the supplied external style",
}

// Refine collapses whitespace, sentence-cases the opening, and appends the
// mode flavor. It never invents content beyond the user's prompt.
func (r *Refiner) Refine(raw string, mode domain.Mode) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return ""
	}

	// Sentence-case only the first word so product names keep their casing.
	first, rest, ok := strings.Cut(cleaned, " ")
	if ok {
		cleaned = r.titler.String(first) + " " + rest
	} else {
		cleaned = r.titler.String(first)
	}

	if flavor, found := modeFlavor[mode]; found {
		if !strings.HasSuffix(cleaned, ".") {
			cleaned += ","
		}
		cleaned += " " + flavor + "."
	}
	return cleaned
}
