// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRawDeviceReadsFixedGeometryFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor")
	// Two 2x2 grayscale frames back to back.
	if err := os.WriteFile(path, bytes.Repeat([]byte{7, 8, 9, 10}, 2), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, err := OpenRaw(path, 2, 2, 1)
	if err != nil {
		t.Fatalf("OpenRaw: %v", err)
	}
	defer d.Close()

	before := time.Now()
	f, err := d.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := f.Valid(); err != nil {
		t.Errorf("frame invalid: %v", err)
	}
	if !bytes.Equal(f.Pixels, []byte{7, 8, 9, 10}) {
		t.Errorf("Pixels = %v, want [7 8 9 10]", f.Pixels)
	}
	if f.Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, predates the read started at %v", f.Timestamp, before)
	}

	second, err := d.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame second frame: %v", err)
	}
	if second.Timestamp.Before(f.Timestamp) {
		t.Error("capture times went backwards across consecutive frames")
	}
}

func TestRawDeviceControlProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, err := OpenRaw(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenRaw: %v", err)
	}
	defer d.Close()

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.SetFrameRate(15); err != nil {
		t.Fatalf("SetFrameRate: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.SetFrameRate(0); err == nil {
		t.Error("SetFrameRate(0) succeeded, want error")
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "start\nrate 15\nstop\n"; string(written) != want {
		t.Errorf("control stream = %q, want %q", written, want)
	}
}

func TestOpenRawRejectsBadGeometry(t *testing.T) {
	if _, err := OpenRaw("/dev/null", 0, 4, 1); err == nil {
		t.Error("OpenRaw with zero width succeeded, want error")
	}
}
