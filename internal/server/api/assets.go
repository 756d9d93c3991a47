package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/asset"
)

// AssetHandler serves the hairstyle catalog and style selection.
type AssetHandler struct {
	app *app.App
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(a *app.App) *AssetHandler {
	return &AssetHandler{app: a}
}

type assetResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ratio  float64 `json:"ratio"`
	Active bool    `json:"active"`
}

type listAssetsResponse struct {
	Assets []assetResponse `json:"assets"`
}

// ServeHTTP routes /api/assets, /api/assets/{id}/select and
// /api/assets/{id}/image.
func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/assets")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	id := parts[0]
	switch parts[1] {
	case "select":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.selectAsset(w, r, id)
	case "image":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.image(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/assets.
func (h *AssetHandler) list(w http.ResponseWriter, r *http.Request) {
	active := h.app.ActiveAsset().ID

	resp := listAssetsResponse{Assets: []assetResponse{}}
	for _, a := range h.app.Catalog().List() {
		resp.Assets = append(resp.Assets, assetResponse{
			ID:     a.ID,
			Name:   a.Name,
			Width:  a.Width,
			Height: a.Height,
			Ratio:  a.Ratio(),
			Active: a.ID == active,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// selectAsset handles POST /api/assets/{id}/select.
func (h *AssetHandler) selectAsset(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.SelectAsset(id); err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Asset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to select asset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset_id":  id,
		"transform": h.app.Transform(),
	})
}

// image handles GET /api/assets/{id}/image and serves the original file.
func (h *AssetHandler) image(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.app.Catalog().Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	http.ServeFile(w, r, a.Source)
}
