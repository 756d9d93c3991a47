package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/landmark"
	"github.com/ayusman/tryon/internal/placement"
)

// SubmitImage makes img the current image and aligns the overlay to it in
// the background. Any alignment still running for the previous image is
// cancelled and its result discarded.
func (a *App) SubmitImage(img *capture.Image) {
	a.mu.Lock()
	prev := a.image
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.image = img
	a.cancel = cancel
	a.setStatusLocked(StatusIdle, img.ID, "")
	a.mu.Unlock()

	a.logger.Info("image submitted", "image", img.ID, "source", img.Source)
	a.publishStatus()

	if prev != nil && prev != img {
		go prev.Close()
	}

	a.aligns.Add(1)
	go func() {
		defer a.aligns.Done()
		defer cancel()
		a.run(ctx, img)
	}()
}

// run resets the overlay for img once it has decoded and aligns it. It is
// shared by SubmitImage and Realign.
func (a *App) run(ctx context.Context, img *capture.Image) {
	if err := img.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		a.prepare(img)
		a.finish(img, StatusDetectorError, err)
		return
	}
	if !a.prepare(img) {
		return
	}

	if _, err := a.Align(ctx, img); err != nil && !errors.Is(err, errStaleResult) {
		a.logger.Debug("alignment finished with error", "image", img.ID, "err", err)
	}
}

// prepare puts the controller back to Idle with the active asset at its
// default placement, the first time it is called for img. It reports false
// when img is no longer the current image.
func (a *App) prepare(img *capture.Image) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.image != img {
		return false
	}
	if a.prepared == img {
		return true
	}
	a.prepared = img
	active, _ := a.catalog.Get(a.assetID)
	w, h := a.canvasLocked()
	if err := a.controller.Reset(defaultTransform(active, w, h)); err != nil {
		a.logger.Error("cannot reset overlay", "image", img.ID, "err", err)
	}
	return true
}

// Align detects landmarks in img and places the overlay from them. It
// invokes the detector at most once. The overlay is left untouched when
// alignment fails, when img is no longer the current image, or when the
// user is in the middle of a drag or resize.
//
// Align returns detector.ErrNotReady without changing the status while the
// landmark model is still loading. A model that failed to load is reported
// as StatusDetectorError.
func (a *App) Align(ctx context.Context, img *capture.Image) (Status, error) {
	switch a.detector.State() {
	case detector.StateReady:
	case detector.StateFailed:
		return a.finish(img, StatusDetectorError, a.loadFailure())
	default:
		return a.Status().Status, detector.ErrNotReady
	}

	a.mu.Lock()
	if a.image != img {
		s := a.status.Status
		a.mu.Unlock()
		return s, errStaleResult
	}
	a.setStatusLocked(StatusDetecting, img.ID, "")
	a.mu.Unlock()
	a.publishStatus()

	if err := img.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return a.Status().Status, errStaleResult
		}
		return a.finish(img, StatusDetectorError, err)
	}

	var faces []detector.FaceLandmarks
	err := img.Use(func(frame *gocv.Mat) error {
		var err error
		faces, err = a.detector.Detect(ctx, frame)
		return err
	})
	if ctx.Err() != nil || !a.isCurrent(img) {
		a.logger.Debug("discarding result for replaced image", "image", img.ID)
		return a.Status().Status, errStaleResult
	}
	if err != nil {
		a.logger.Error("landmark detection failed", "image", img.ID, "err", err)
		return a.finish(img, StatusDetectorError, err)
	}

	set, err := landmark.Normalize(faces)
	switch {
	case errors.Is(err, landmark.ErrNoFace):
		a.logger.Info("no face found", "image", img.ID)
		return a.finish(img, StatusNoFace, err)
	case err != nil:
		a.logger.Error("malformed landmarks", "image", img.ID, "err", err)
		return a.finish(img, StatusDetectorError, err)
	}

	return a.place(img, set)
}

// place solves the placement and applies it if img is still current.
func (a *App) place(img *capture.Image, set landmark.Set) (Status, error) {
	a.mu.Lock()
	if a.image != img {
		s := a.status.Status
		a.mu.Unlock()
		return s, errStaleResult
	}

	active, _ := a.catalog.Get(a.assetID)
	t, err := placement.Solve(set, active.Ratio(), a.placement)
	if err != nil {
		a.mu.Unlock()
		if errors.Is(err, placement.ErrInvalidGeometry) {
			a.logger.Warn("degenerate face geometry", "image", img.ID, "err", err)
			return a.finish(img, StatusNoFace, err)
		}
		a.logger.Error("cannot place overlay", "image", img.ID, "asset", active.ID, "err", err)
		return a.finish(img, StatusDetectorError, err)
	}

	applied, err := a.controller.TryApply(t)
	if err != nil {
		a.mu.Unlock()
		return a.finish(img, StatusDetectorError, err)
	}

	if applied {
		a.setStatusLocked(StatusAligned, img.ID, "")
	} else {
		a.setStatusLocked(StatusIdle, img.ID, "alignment skipped during gesture")
	}
	a.mu.Unlock()

	if applied {
		a.logger.Info("overlay aligned", "image", img.ID, "asset", active.ID,
			"top", t.Top, "left", t.Left, "width", t.Width, "height", t.Height)
	} else {
		a.logger.Info("alignment discarded, gesture in progress", "image", img.ID)
	}
	a.publishStatus()

	if !applied {
		return StatusIdle, nil
	}
	return StatusAligned, nil
}

// finish records a terminal status for img unless it has been replaced.
func (a *App) finish(img *capture.Image, s Status, cause error) (Status, error) {
	a.mu.Lock()
	if a.image != img {
		current := a.status.Status
		a.mu.Unlock()
		return current, errStaleResult
	}
	a.setStatusLocked(s, img.ID, cause.Error())
	a.mu.Unlock()

	a.publishStatus()
	return s, cause
}

func (a *App) isCurrent(img *capture.Image) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.image == img
}

// Realign runs alignment again for the current image in the background, for
// example after the model finished loading or the calibration changed.
func (a *App) Realign() error {
	if a.detector.State() == detector.StateLoading {
		return detector.ErrNotReady
	}

	a.mu.Lock()
	img := a.image
	if img == nil {
		a.mu.Unlock()
		return ErrNoImage
	}
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.aligns.Add(1)
	go func() {
		defer a.aligns.Done()
		defer cancel()
		a.run(ctx, img)
	}()
	return nil
}

// loadFailure describes why the detector is unusable, including the load
// error when the detector records one.
func (a *App) loadFailure() error {
	if l, ok := a.detector.(interface{ LoadError() error }); ok {
		if err := l.LoadError(); err != nil {
			return fmt.Errorf("%w: %v", detector.ErrLoadFailed, err)
		}
	}
	return detector.ErrLoadFailed
}
