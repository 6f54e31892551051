// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RawDevice drives the sensor bridge character device. The bridge
// streams fixed-geometry raw frames and accepts line-oriented control
// writes on the same descriptor: "start", "stop", "rate <fps>".
type RawDevice struct {
	file          *os.File
	width         int
	height        int
	bytesPerPixel int
}

// OpenRaw opens the bridge device for the given frame geometry. The
// geometry must match the bridge configuration; a mismatch shows up as
// torn frames, not an error.
func OpenRaw(path string, width, height, bytesPerPixel int) (*RawDevice, error) {
	if width <= 0 || height <= 0 || bytesPerPixel <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%dx%d", width, height, bytesPerPixel)
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening sensor device: %w", err)
	}
	return &RawDevice{file: file, width: width, height: height, bytesPerPixel: bytesPerPixel}, nil
}

func (d *RawDevice) control(command string) error {
	if _, err := d.file.WriteString(command + "\n"); err != nil {
		return fmt.Errorf("sensor control %q: %w", command, err)
	}
	return nil
}

// Start begins streaming.
func (d *RawDevice) Start() error { return d.control("start") }

// Stop ends streaming. The bridge treats a redundant stop as a no-op.
func (d *RawDevice) Stop() error { return d.control("stop") }

// SetFrameRate reconfigures the capture cadence.
func (d *RawDevice) SetFrameRate(fps int) error {
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}
	return d.control(fmt.Sprintf("rate %d", fps))
}

// Fd returns the descriptor to multiplex in poll(2).
func (d *RawDevice) Fd() int { return int(d.file.Fd()) }

// ReadFrame reads one complete frame. The bridge buffers whole frames,
// so after poll readiness the read completes without an unbounded
// stall.
func (d *RawDevice) ReadFrame() (*Frame, error) {
	pixels := make([]byte, d.width*d.height*d.bytesPerPixel)
	if _, err := io.ReadFull(d.file, pixels); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return &Frame{
		Width:         d.width,
		Height:        d.height,
		BytesPerPixel: d.bytesPerPixel,
		Pixels:        pixels,
		Timestamp:     time.Now(),
	}, nil
}

func (d *RawDevice) Close() error { return d.file.Close() }
