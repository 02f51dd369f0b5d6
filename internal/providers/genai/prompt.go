package genai

import (
	"fmt"
	"strings"
)

// BuildPrompt flattens a payload into the textual instruction sent to the
// model: the refined or raw prompt, a negative-prompt annotation, camera
// guidance, a gallery note, aspect-ratio guidance, the mode name, and the
// visual-foundation instruction when references are attached.
func BuildPrompt(p Payload) string {
	var lines []string

	prompt := strings.TrimSpace(p.RefinedPrompt)
	if prompt == "" {
		prompt = strings.TrimSpace(p.Prompt)
	}
	if prompt != "" {
		lines = append(lines, prompt)
	}

	if negative := strings.TrimSpace(p.NegativePrompt); negative != "" {
		lines = append(lines, "Avoid the following: "+negative+".")
	}

	if sentence := cameraSentence(p.Camera); sentence != "" {
		lines = append(lines, sentence)
	}

	if p.GalleryCount > 0 {
		noun := "images are"
		if p.GalleryCount == 1 {
			noun = "image is"
		}
		lines = append(lines, fmt.Sprintf("%d additional gallery reference %s attached.", p.GalleryCount, noun))
	}

	if aspect := strings.TrimSpace(p.AspectRatio); aspect != "" {
		lines = append(lines, fmt.Sprintf("Compose the result for a %s aspect ratio.", aspect))
	}

	if mode := strings.TrimSpace(p.Mode); mode != "" {
		lines = append(lines, fmt.Sprintf("Generation mode: %s.", mode))
	}

	if len(p.References) > 0 {
		lines = append(lines, "Use the attached reference image as the visual foundation for the result.")
	}

	return strings.Join(lines, "\n")
}

// cameraSentence folds up to five structured camera fields into one guidance
// sentence. Empty fields are skipped; an all-empty rig yields no sentence.
func cameraSentence(c CameraGuidance) string {
	var parts []string
	if v := strings.TrimSpace(c.Angle); v != "" {
		parts = append(parts, "shoot from a "+v+" angle")
	}
	if v := strings.TrimSpace(c.Aperture); v != "" {
		parts = append(parts, "use an aperture of "+v)
	}
	if v := strings.TrimSpace(c.SubjectDirection); v != "" {
		parts = append(parts, "subject facing "+v)
	}
	if v := strings.TrimSpace(c.CameraDirection); v != "" {
		parts = append(parts, "camera pointing "+v)
	}
	if v := strings.TrimSpace(c.Zoom); v != "" {
		parts = append(parts, "zoom level "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Camera guidance: " + strings.Join(parts, ", ") + "."
}
