package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

var (
	// ErrInvalidImage is returned when image data cannot be decoded.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrImageClosed is returned when an image is used after Close.
	ErrImageClosed = errors.New("image closed")
)

// Source describes where a still image came from.
type Source string

const (
	SourceUpload Source = "upload"
	SourceCamera Source = "camera"
)

// Image is an immutable still with an identity. Its pixels become available
// once decoding finishes; callers must Wait before using them.
type Image struct {
	ID     string
	Source Source

	ready chan struct{}
	err   error

	mu      sync.RWMutex
	mat     gocv.Mat
	width   int
	height  int
	closed  bool
	picture image.Image
}

func newImage(source Source) *Image {
	return &Image{
		ID:     uuid.New().String(),
		Source: source,
		ready:  make(chan struct{}),
	}
}

// Decode starts decoding encoded image data (JPEG, PNG, ...) in the
// background and returns immediately.
func Decode(data []byte, source Source) *Image {
	img := newImage(source)
	buf := append([]byte(nil), data...)

	go func() {
		defer close(img.ready)

		mat, err := gocv.IMDecode(buf, gocv.IMReadColor)
		if err != nil {
			img.err = fmt.Errorf("%w: %v", ErrInvalidImage, err)
			return
		}
		if mat.Empty() {
			mat.Close()
			img.err = ErrInvalidImage
			return
		}

		img.mu.Lock()
		img.mat = mat
		img.width = mat.Cols()
		img.height = mat.Rows()
		img.mu.Unlock()
	}()

	return img
}

// FromMat wraps an already decoded frame. The image takes ownership of mat.
func FromMat(mat gocv.Mat, source Source) *Image {
	img := newImage(source)
	defer close(img.ready)

	if mat.Empty() {
		mat.Close()
		img.err = ErrInvalidImage
		return img
	}

	img.mat = mat
	img.width = mat.Cols()
	img.height = mat.Rows()
	return img
}

// Ready is closed once decoding has finished, successfully or not.
func (i *Image) Ready() <-chan struct{} {
	return i.ready
}

// Wait blocks until decoding finishes and returns its error.
func (i *Image) Wait(ctx context.Context) error {
	select {
	case <-i.ready:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the pixel dimensions. It is zero until decoding succeeds.
func (i *Image) Size() (width, height int) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.width, i.height
}

// Use calls fn with the decoded frame. The frame must not be retained after
// fn returns. Close waits for running calls to finish.
func (i *Image) Use(fn func(frame *gocv.Mat) error) error {
	select {
	case <-i.ready:
	default:
		return errors.New("image not decoded yet")
	}
	if i.err != nil {
		return i.err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return ErrImageClosed
	}
	return fn(&i.mat)
}

// Picture returns the frame as an image.Image. The conversion is cached.
func (i *Image) Picture() (image.Image, error) {
	i.mu.RLock()
	if i.picture != nil {
		pic := i.picture
		i.mu.RUnlock()
		return pic, nil
	}
	i.mu.RUnlock()

	var pic image.Image
	err := i.Use(func(frame *gocv.Mat) error {
		var err error
		pic, err = frame.ToImage()
		return err
	})
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.picture = pic
	i.mu.Unlock()

	return pic, nil
}

// Close releases the frame. It is safe to call more than once.
func (i *Image) Close() error {
	<-i.ready

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.err != nil {
		i.closed = true
		return nil
	}
	i.closed = true
	i.picture = nil
	return i.mat.Close()
}
