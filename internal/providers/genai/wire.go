package genai

import "strings"

// Wire shapes for the two endpoint families. A single modelResponse struct
// absorbs both so extraction can try each variant in one documented order.

type predictRequest struct {
	Instances  []predictInstance  `json:"instances"`
	Parameters *predictParameters `json:"parameters,omitempty"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts,omitempty"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type modelResponse struct {
	Predictions []prediction `json:"predictions,omitempty"`
	Candidates  []candidate  `json:"candidates,omitempty"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

// extractImage walks the response variants in a fixed order: the dedicated
// image array first, then candidate parts holding inline image data, then a
// candidate text part shaped like a data URL. Returns base64 payload, MIME
// type, and whether anything was found.
func (r *modelResponse) extractImage() (string, string, bool) {
	for _, p := range r.Predictions {
		if p.BytesBase64Encoded != "" {
			mime := p.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return p.BytesBase64Encoded, mime, true
		}
	}

	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return part.InlineData.Data, mime, true
			}
		}
	}

	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if payload, mime, ok := dataURLParts(part.Text); ok {
				return payload, mime, true
			}
		}
	}

	return "", "", false
}

func dataURLParts(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", "", false
	}
	meta := rest[:comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", false
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/png"
	}
	return rest[comma+1:], mime, true
}
