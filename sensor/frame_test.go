// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"bytes"
	"testing"
	"time"
)

func grayFrame(width, height int, pixels []byte) *Frame {
	return &Frame{
		Width:         width,
		Height:        height,
		BytesPerPixel: 1,
		Pixels:        pixels,
		Timestamp:     time.Unix(0, 0),
	}
}

func TestRotate90(t *testing.T) {
	// 3x2:          rotated 90° cw, 2x3:
	//  1 2 3         4 1
	//  4 5 6         5 2
	//                6 3
	f := grayFrame(3, 2, []byte{1, 2, 3, 4, 5, 6})
	got, err := Rotate(f, 90)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if got.Width != 2 || got.Height != 3 {
		t.Fatalf("rotated dimensions = %dx%d, want 2x3", got.Width, got.Height)
	}
	want := []byte{4, 1, 5, 2, 6, 3}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, want)
	}
}

func TestRotate180(t *testing.T) {
	f := grayFrame(3, 2, []byte{1, 2, 3, 4, 5, 6})
	got, err := Rotate(f, 180)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	want := []byte{6, 5, 4, 3, 2, 1}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, want)
	}
}

func TestRotateFullTurnIsIdentity(t *testing.T) {
	f := grayFrame(4, 3, []byte{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})
	current := f
	for i := 0; i < 4; i++ {
		var err error
		current, err = Rotate(current, 90)
		if err != nil {
			t.Fatalf("Rotate: %v", err)
		}
	}
	if !bytes.Equal(current.Pixels, f.Pixels) {
		t.Errorf("four quarter turns changed the frame: %v", current.Pixels)
	}
}

func TestRotateDoesNotMutateInput(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	f := grayFrame(2, 2, pixels)
	if _, err := Rotate(f, 90); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !bytes.Equal(pixels, []byte{1, 2, 3, 4}) {
		t.Error("Rotate mutated the input frame")
	}
}

func TestRotateRGB(t *testing.T) {
	f := &Frame{
		Width:         2,
		Height:        1,
		BytesPerPixel: 3,
		Pixels:        []byte{1, 2, 3, 4, 5, 6},
	}
	got, err := Rotate(f, 90)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	// Pixel order reverses column-wise; triplets stay intact.
	want := []byte{1, 2, 3, 4, 5, 6}
	if got.Width != 1 || got.Height != 2 {
		t.Fatalf("rotated dimensions = %dx%d, want 1x2", got.Width, got.Height)
	}
	if !bytes.Equal(got.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", got.Pixels, want)
	}
}

func TestRotateRejectsBadInput(t *testing.T) {
	f := grayFrame(2, 2, []byte{1, 2, 3})
	if _, err := Rotate(f, 90); err == nil {
		t.Error("Rotate accepted a short pixel buffer")
	}
	ok := grayFrame(2, 2, []byte{1, 2, 3, 4})
	if _, err := Rotate(ok, 45); err == nil {
		t.Error("Rotate accepted a 45 degree rotation")
	}
}

func TestDigestFrameIsStableAndKeyed(t *testing.T) {
	f := grayFrame(2, 2, []byte{1, 2, 3, 4})
	first := DigestFrame(f)
	second := DigestFrame(f)
	if first != second {
		t.Error("digest of the same frame differs between calls")
	}
	other := grayFrame(2, 2, []byte{1, 2, 3, 5})
	if DigestFrame(other) == first {
		t.Error("distinct frames collided")
	}
	if len(first.String()) != 64 {
		t.Errorf("digest hex length = %d, want 64", len(first.String()))
	}
}
