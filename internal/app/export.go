package app

import (
	"context"
	"fmt"
	"image"

	"github.com/ayusman/tryon/internal/compose"
	"github.com/ayusman/tryon/internal/store"
)

// Export composites the current image and overlay without selection
// chrome and encodes it as PNG. The export is recorded in the store when
// one is configured. It returns the encoded bytes and the download name.
func (a *App) Export(ctx context.Context) ([]byte, string, error) {
	scene, imageID, assetID, err := a.scene(ctx)
	if err != nil {
		return nil, "", err
	}

	img, err := compose.Render(scene, compose.Options{})
	if err != nil {
		return nil, "", err
	}
	data, err := compose.EncodePNG(img)
	if err != nil {
		return nil, "", err
	}

	if a.config.Store != nil {
		rec := &store.Export{
			ImageID:   imageID,
			AssetID:   assetID,
			Transform: scene.Transform,
			Bytes:     len(data),
		}
		if err := a.config.Store.Exports().Create(rec); err != nil {
			a.logger.Warn("cannot record export", "image", imageID, "err", err)
		}
	}

	a.logger.Info("preview exported", "image", imageID, "asset", assetID, "bytes", len(data))
	return data, compose.ExportFilename, nil
}

// Preview renders the scene as the user sees it, with selection chrome.
func (a *App) Preview(ctx context.Context) (image.Image, error) {
	scene, _, _, err := a.scene(ctx)
	if err != nil {
		return nil, err
	}
	return compose.Render(scene, compose.Options{ShowSelection: true})
}

func (a *App) scene(ctx context.Context) (compose.Scene, string, string, error) {
	a.mu.RLock()
	img := a.image
	assetID := a.assetID
	a.mu.RUnlock()

	if img == nil {
		return compose.Scene{}, "", "", ErrNoImage
	}
	if err := img.Wait(ctx); err != nil {
		return compose.Scene{}, "", "", fmt.Errorf("image %s: %w", img.ID, err)
	}

	base, err := img.Picture()
	if err != nil {
		return compose.Scene{}, "", "", err
	}
	hair, err := a.catalog.Image(assetID)
	if err != nil {
		return compose.Scene{}, "", "", err
	}

	return compose.Scene{
		Base:      base,
		Overlay:   hair,
		Transform: a.overlay.Get(),
		Selected:  a.controller.Selected(),
	}, img.ID, assetID, nil
}

// Snapshot takes a still from the camera and submits it.
func (a *App) Snapshot(ctx context.Context) (string, error) {
	if a.config.Snapshotter == nil {
		return "", ErrNoCamera
	}

	img, err := a.config.Snapshotter.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	a.SubmitImage(img)
	return img.ID, nil
}

// Exports lists recorded exports, newest first.
func (a *App) Exports(limit int) ([]*store.Export, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Exports().List(limit)
}
