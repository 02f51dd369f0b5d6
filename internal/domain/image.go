package domain

import (
	"strings"
	"time"
)

// Mode enumerates the studio generation workflows.
type Mode string

const (
	ModeCreate      Mode = "create"
	ModeRemix       Mode = "remix"
	ModeCamera      Mode = "camera"
	ModeCrop        Mode = "crop"
	ModePromptAdapt Mode = "prompt-adapt"
	ModeLighting    Mode = "lighting"
	ModePose        Mode = "pose"
	ModeUpscale     Mode = "upscale"
	ModeSketch      Mode = "sketch"
	ModeExternal    Mode = "external"
)

// NormalizeMode sanitizes free-form input into a supported mode.
func NormalizeMode(mode string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeRemix, ModeCamera, ModeCrop, ModePromptAdapt, ModeLighting,
		ModePose, ModeUpscale, ModeSketch, ModeExternal:
		return Mode(strings.ToLower(strings.TrimSpace(mode)))
	default:
		return ModeCreate
	}
}

// GenerationStatus tracks the lifecycle of a persisted image record.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// CameraRig carries the structured photography guidance attached to a request.
type CameraRig struct {
	Angle            string `json:"angle,omitempty"`
	Aperture         string `json:"aperture,omitempty"`
	SubjectDirection string `json:"subjectDirection,omitempty"`
	CameraDirection  string `json:"cameraDirection,omitempty"`
	Zoom             string `json:"zoom,omitempty"`
}

// IsZero reports whether no camera field is set.
func (c CameraRig) IsZero() bool {
	return c.Angle == "" && c.Aperture == "" && c.SubjectDirection == "" &&
		c.CameraDirection == "" && c.Zoom == ""
}

// GeneratedImage is the persisted artifact written by the result writer on a
// successful generation. Immutable afterwards except for soft metadata edits
// outside this service.
type GeneratedImage struct {
	ID          string
	UserID      string
	Mode        Mode
	Status      GenerationStatus
	PromptMeta  []byte
	ImageURL    string
	Model       string
	CostCredits int
	CreatedAt   time.Time
}
