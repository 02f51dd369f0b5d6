// Package generation orchestrates a single image generation: reference
// resolution, model dispatch with the one-shot fallback, and best-effort
// persistence of the result.
package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/domain/jsoncfg"
	"studio/internal/infra"
	"studio/internal/providers/genai"
	promptprovider "studio/internal/providers/prompt"
	"studio/internal/reference"
	"studio/internal/sqlinline"
	"studio/internal/storage"
)

// ErrMissingCredential indicates the upstream API key is absent. This is a
// deployment configuration issue, not a per-request failure, and degrades to
// a placeholder response.
var ErrMissingCredential = errors.New("image generation is not configured")

// Dispatcher is the slice of the model client the service needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, model string, payload genai.Payload) (*genai.Result, error)
	FallbackImageModel() string
	HasCredentials() bool
}

// Input is a fully validated generation intent.
type Input struct {
	UserID         string
	Prompt         string
	RefinedPrompt  string
	NegativePrompt string
	Mode           domain.Mode
	Camera         domain.CameraRig
	Model          string
	AspectRatio    string
	Reference      *reference.Input
	Gallery        []reference.Input
	Options        map[string]any
	Country        string
}

// Outcome is the successful result of a generation.
type Outcome struct {
	Base64Image string
	MIME        string
	Model       string
	RecordID    string
	Fallback    bool
}

// Service wires the resolver, dispatcher, and result writer together.
type Service struct {
	dispatcher   Dispatcher
	resolver     *reference.Resolver
	refiner      *promptprovider.Refiner
	store        storage.BlobStore
	sql          infra.SQLExecutor
	logger       zerolog.Logger
	defaultModel string
}

func NewService(dispatcher Dispatcher, resolver *reference.Resolver, store storage.BlobStore, sql infra.SQLExecutor, defaultModel string, logger zerolog.Logger) *Service {
	return &Service{
		dispatcher:   dispatcher,
		resolver:     resolver,
		refiner:      promptprovider.NewRefiner(),
		store:        store,
		sql:          sql,
		logger:       logger,
		defaultModel: defaultModel,
	}
}

// Generate runs the full pipeline. Quota consumption happens before this call
// and is authoritative; everything here that follows a successful dispatch is
// compensating/best-effort and never converts a success into a failure.
func (s *Service) Generate(ctx context.Context, in Input) (*Outcome, error) {
	if !s.dispatcher.HasCredentials() {
		return nil, ErrMissingCredential
	}

	started := time.Now()

	refined := strings.TrimSpace(in.RefinedPrompt)
	if refined == "" {
		refined = s.refiner.Refine(in.Prompt, in.Mode)
	}

	refs := s.resolver.Resolve(ctx, in.Reference, in.Gallery)

	payload := genai.Payload{
		Prompt:         in.Prompt,
		RefinedPrompt:  refined,
		NegativePrompt: in.NegativePrompt,
		Mode:           string(in.Mode),
		AspectRatio:    in.AspectRatio,
		Camera: genai.CameraGuidance{
			Angle:            in.Camera.Angle,
			Aperture:         in.Camera.Aperture,
			SubjectDirection: in.Camera.SubjectDirection,
			CameraDirection:  in.Camera.CameraDirection,
			Zoom:             in.Camera.Zoom,
		},
		References:   refs,
		GalleryCount: len(in.Gallery),
	}

	model := strings.TrimSpace(in.Model)
	pinned := model != "" && model != s.defaultModel
	if model == "" {
		model = s.defaultModel
	}

	result, usedFallback, err := s.dispatchWithFallback(ctx, model, pinned, payload)
	if err != nil {
		s.recordUsage(ctx, in, false, time.Since(started))
		return nil, err
	}

	out := &Outcome{
		Base64Image: result.Base64Image,
		MIME:        result.MIME,
		Model:       result.Model,
		Fallback:    usedFallback,
	}
	out.RecordID = s.persist(ctx, in, refined, result)
	s.recordUsage(ctx, in, true, time.Since(started))
	return out, nil
}

// dispatchWithFallback retries exactly once against the fallback image model,
// and only when the primary call failed with a 404 on an image-class model
// that the caller did not explicitly pin. Other failure classes surface
// directly.
func (s *Service) dispatchWithFallback(ctx context.Context, model string, pinned bool, payload genai.Payload) (*genai.Result, bool, error) {
	result, err := s.dispatcher.Dispatch(ctx, model, payload)
	if err == nil {
		return result, false, nil
	}

	var apiErr *genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || !genai.IsImageClass(model) || pinned {
		return nil, false, err
	}

	fallbackModel := s.dispatcher.FallbackImageModel()
	s.logger.Warn().
		Str("model", model).
		Str("fallback_model", fallbackModel).
		Msg("generation: primary model missing, retrying with fallback")

	result, fallbackErr := s.dispatcher.Dispatch(ctx, fallbackModel, payload)
	if fallbackErr != nil {
		return nil, false, fmt.Errorf("%s (fallback also failed: %s)", apiErr.Reason, fallbackErr)
	}
	return result, true, nil
}

// persist writes the image bytes and metadata. Best-effort: any failure is
// logged and swallowed, and the record id is returned only when the metadata
// row landed.
func (s *Service) persist(ctx context.Context, in Input, refined string, result *genai.Result) string {
	recordID := uuid.NewString()
	key := fmt.Sprintf("%s/%s%s", in.UserID, recordID, extensionForMIME(result.MIME))

	data, err := decodeImage(result.Base64Image)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", recordID).Msg("generation: result payload not decodable, skipping persistence")
		return ""
	}

	storedKey, err := s.store.Write(ctx, key, data, result.MIME)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", recordID).Msg("generation: blob write failed")
		return ""
	}

	meta := map[string]any{
		"prompt":        in.Prompt,
		"refinedPrompt": refined,
		"mode":          in.Mode,
		"aspectRatio":   in.AspectRatio,
		"galleryCount":  len(in.Gallery),
	}
	if in.NegativePrompt != "" {
		meta["negativePrompt"] = in.NegativePrompt
	}
	if !in.Camera.IsZero() {
		meta["camera"] = in.Camera
	}
	if in.Options != nil {
		meta["options"] = jsoncfg.SanitizeOptions(in.Options)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", recordID).Msg("generation: marshal prompt meta failed")
		return ""
	}

	if _, err := s.sql.Exec(ctx, sqlinline.QInsertGeneratedImage,
		recordID,
		in.UserID,
		string(in.Mode),
		string(domain.GenerationCompleted),
		metaJSON,
		s.store.PublicURL(storedKey),
		result.Model,
		1,
	); err != nil {
		s.logger.Error().Err(err).Str("record_id", recordID).Msg("generation: image record insert failed")
		return ""
	}
	return recordID
}

func (s *Service) recordUsage(ctx context.Context, in Input, success bool, latency time.Duration) {
	props, _ := json.Marshal(map[string]any{"mode": in.Mode, "model": in.Model})
	if _, err := s.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		in.UserID,
		"image_generation",
		success,
		int(latency.Milliseconds()),
		in.Country,
		props,
	); err != nil {
		s.logger.Warn().Err(err).Msg("generation: usage event insert failed")
	}
}

func decodeImage(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
