package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/fixture"
	"github.com/ayusman/tryon/internal/overlay"
)

func TestAPI_PreviewWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV integration test in short mode")
	}

	a, mock := newTestApp(t)
	mock.SetFaces([]detector.FaceLandmarks{detector.FrontalFace()})

	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()

	client := ts.Client()

	// 1. Upload a photo
	resp, err := client.Post(ts.URL+"/api/images", "image/png", bytes.NewReader(fixture.Photo(t, 320, 400)))
	if err != nil {
		t.Fatalf("POST /api/images error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	var submitted struct {
		ImageID string `json:"image_id"`
	}
	json.NewDecoder(resp.Body).Decode(&submitted)
	resp.Body.Close()

	// 2. Poll status until aligned
	var status app.StatusInfo
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, _ = client.Get(ts.URL + "/api/status")
		json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if status.Status == app.StatusAligned {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status.Status != app.StatusAligned || status.ImageID != submitted.ImageID {
		t.Fatalf("status = %+v, want aligned for %s", status, submitted.ImageID)
	}

	// 3. The overlay sits on the detected face
	var current struct {
		Transform overlay.Transform `json:"transform"`
	}
	resp, _ = client.Get(ts.URL + "/api/overlay")
	json.NewDecoder(resp.Body).Decode(&current)
	resp.Body.Close()

	want := overlay.Transform{Top: 117.2, Left: 64, Width: 132, Height: 105.6}
	if !approxTransform(current.Transform, want) {
		t.Fatalf("aligned transform = %+v, want %+v", current.Transform, want)
	}

	// 4. Select and drag the overlay
	pointer := func(body string) {
		t.Helper()
		resp, err := client.Post(ts.URL+"/api/pointer", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST /api/pointer error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST /api/pointer %s status = %d", body, resp.StatusCode)
		}
	}
	pointer(`{"type":"down","x":130,"y":170}`)
	pointer(`{"type":"gesture_start","x":130,"y":170}`)
	pointer(`{"type":"move","dx":10,"dy":20}`)
	pointer(`{"type":"up"}`)

	moved := current.Transform.Translate(10, 20)
	if got := a.Transform(); got != moved {
		t.Errorf("dragged transform = %+v, want %+v", got, moved)
	}

	// 5. Export the composite
	resp, err = client.Get(ts.URL + "/api/export")
	if err != nil {
		t.Fatalf("GET /api/export error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/export status = %d", resp.StatusCode)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("export is not a PNG")
	}

	// 6. The export is logged with the dragged transform
	var listed struct {
		Exports []struct {
			ImageID   string            `json:"image_id"`
			AssetID   string            `json:"asset_id"`
			Transform overlay.Transform `json:"transform"`
		} `json:"exports"`
	}
	resp, _ = client.Get(ts.URL + "/api/exports")
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Exports) != 1 {
		t.Fatalf("exports = %d, want 1", len(listed.Exports))
	}
	e := listed.Exports[0]
	if e.ImageID != submitted.ImageID || e.AssetID != "bob" || e.Transform != moved {
		t.Errorf("export = %+v", e)
	}
}

func approxTransform(a, b overlay.Transform) bool {
	const eps = 1e-9
	return math.Abs(a.Top-b.Top) < eps && math.Abs(a.Left-b.Left) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}
