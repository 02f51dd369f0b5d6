package genai

import (
	"strings"
	"testing"

	"studio/internal/reference"
)

func TestBuildPromptPrefersRefinedPrompt(t *testing.T) {
	out := BuildPrompt(Payload{Prompt: "raw", RefinedPrompt: "refined"})
	if !strings.HasPrefix(out, "refined") || strings.Contains(out, "raw") {
		t.Fatalf("refined prompt should win: %q", out)
	}
}

func TestBuildPromptAssemblesAllSections(t *testing.T) {
	out := BuildPrompt(Payload{
		Prompt:         "a red bicycle",
		NegativePrompt: "blur, noise",
		Mode:           "remix",
		AspectRatio:    "16:9",
		GalleryCount:   2,
		Camera: CameraGuidance{
			Angle:            "low",
			Aperture:         "f/1.8",
			SubjectDirection: "left",
			CameraDirection:  "upward",
			Zoom:             "close-up",
		},
		References: []reference.Resolved{{Bytes: []byte("x"), MIME: "image/png"}},
	})

	for _, want := range []string{
		"a red bicycle",
		"Avoid the following: blur, noise.",
		"Camera guidance: shoot from a low angle, use an aperture of f/1.8, subject facing left, camera pointing upward, zoom level close-up.",
		"2 additional gallery reference images are attached.",
		"Compose the result for a 16:9 aspect ratio.",
		"Generation mode: remix.",
		"Use the attached reference image as the visual foundation for the result.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("prompt missing %q in:\n%s", want, out)
		}
	}
}

func TestBuildPromptSkipsEmptySections(t *testing.T) {
	out := BuildPrompt(Payload{Prompt: "just a prompt"})
	if out != "just a prompt" {
		t.Fatalf("unexpected prompt: %q", out)
	}
}

func TestCameraSentencePartialFields(t *testing.T) {
	got := cameraSentence(CameraGuidance{Angle: "overhead", Zoom: "wide"})
	want := "Camera guidance: shoot from a overhead angle, zoom level wide."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCameraSentenceEmpty(t *testing.T) {
	if got := cameraSentence(CameraGuidance{}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestBuildPromptSingularGalleryNote(t *testing.T) {
	out := BuildPrompt(Payload{Prompt: "p", GalleryCount: 1})
	if !strings.Contains(out, "1 additional gallery reference image is attached.") {
		t.Fatalf("singular note missing: %q", out)
	}
}
