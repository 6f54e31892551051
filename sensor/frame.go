// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"fmt"
	"time"
)

// Frame is one captured image. Frames are shared by pointer across
// ports and broadcast subscriptions; Pixels must never be mutated
// after construction.
type Frame struct {
	Width  int `cbor:"width"`
	Height int `cbor:"height"`

	// BytesPerPixel is 1 for grayscale and thermal, 3 for RGB.
	BytesPerPixel int `cbor:"bpp"`

	// Pixels is the row-major image data, len = Width*Height*BytesPerPixel.
	Pixels []byte `cbor:"pixels"`

	// Timestamp is the device capture time.
	Timestamp time.Time `cbor:"timestamp"`
}

// Size returns the expected pixel buffer length.
func (f *Frame) Size() int { return f.Width * f.Height * f.BytesPerPixel }

// Valid checks the buffer length against the dimensions.
func (f *Frame) Valid() error {
	if f.Width <= 0 || f.Height <= 0 || f.BytesPerPixel <= 0 {
		return fmt.Errorf("frame has non-positive dimensions %dx%dx%d", f.Width, f.Height, f.BytesPerPixel)
	}
	if len(f.Pixels) != f.Size() {
		return fmt.Errorf("frame buffer is %d bytes, want %d", len(f.Pixels), f.Size())
	}
	return nil
}

// Rotate returns a new frame rotated clockwise by degrees (0, 90, 180,
// or 270). The input frame is not modified. Rotation by 0 returns the
// input unchanged.
func Rotate(f *Frame, degrees int) (*Frame, error) {
	if err := f.Valid(); err != nil {
		return nil, err
	}
	switch degrees {
	case 0:
		return f, nil
	case 90, 180, 270:
	default:
		return nil, fmt.Errorf("unsupported rotation %d", degrees)
	}

	width, height := f.Width, f.Height
	if degrees != 180 {
		width, height = height, width
	}
	out := &Frame{
		Width:         width,
		Height:        height,
		BytesPerPixel: f.BytesPerPixel,
		Pixels:        make([]byte, f.Size()),
		Timestamp:     f.Timestamp,
	}

	bpp := f.BytesPerPixel
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var dx, dy int
			switch degrees {
			case 90:
				dx, dy = f.Height-1-y, x
			case 180:
				dx, dy = f.Width-1-x, f.Height-1-y
			case 270:
				dx, dy = y, f.Width-1-x
			}
			src := (y*f.Width + x) * bpp
			dst := (dy*out.Width + dx) * bpp
			copy(out.Pixels[dst:dst+bpp], f.Pixels[src:src+bpp])
		}
	}
	return out, nil
}
