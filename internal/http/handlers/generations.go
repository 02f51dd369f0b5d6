package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"studio/internal/sqlinline"
	"studio/pkg/zip"
)

const defaultGenerationsLimit = 50

func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := defaultGenerationsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectGeneratedImages, userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generations")
		return
	}
	defer rows.Close()
	items := []map[string]any{}
	for rows.Next() {
		var id, owner, mode, status, imageURL, model string
		var meta []byte
		var cost int
		var createdAt time.Time
		if err := rows.Scan(&id, &owner, &mode, &status, &meta, &imageURL, &model, &cost, &createdAt); err != nil {
			continue
		}
		items = append(items, map[string]any{
			"id":           id,
			"mode":         mode,
			"status":       status,
			"prompt_meta":  json.RawMessage(meta),
			"image_url":    imageURL,
			"model":        model,
			"cost_credits": cost,
			"created_at":   createdAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GenerationsExport(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectGeneratedImages, userID, 200)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generations")
		return
	}
	defer rows.Close()
	var assets []zip.Asset
	for rows.Next() {
		var id, owner, mode, status, imageURL, model string
		var meta []byte
		var cost int
		var createdAt time.Time
		if err := rows.Scan(&id, &owner, &mode, &status, &meta, &imageURL, &model, &cost, &createdAt); err != nil {
			continue
		}
		key := a.storageKeyFromURL(imageURL)
		if key == "" || a.Blobs == nil {
			continue
		}
		data, err := a.Blobs.Read(key)
		if err != nil || len(data) == 0 {
			continue
		}
		assets = append(assets, zip.Asset{Filename: path.Base(key), Data: data})
	}
	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=generations-%s.zip", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// storageKeyFromURL recovers the blob key from a stored public URL. Records
// written by a different sink (or external URLs) are skipped.
func (a *App) storageKeyFromURL(imageURL string) string {
	base := strings.TrimRight(a.Config.StorageBaseURL, "/")
	if base == "" || !strings.HasPrefix(imageURL, base+"/") {
		return ""
	}
	return strings.TrimPrefix(imageURL, base+"/")
}
