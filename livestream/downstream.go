// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package livestream

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/sensor"
)

// Downstream streams preview frames to the connected operator app.
// Each frame is CBOR-encoded, zstd-compressed, and length-prefixed.
// Stateless per-frame compression keeps a dropped TCP segment from
// corrupting every following frame.
type Downstream struct {
	w   io.Writer
	enc *zstd.Encoder
}

// NewDownstream wraps the client connection.
func NewDownstream(w io.Writer) (*Downstream, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &Downstream{w: w, enc: enc}, nil
}

// WriteFrame sends one preview frame.
func (d *Downstream) WriteFrame(f *sensor.Frame) error {
	raw, err := codec.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding preview frame: %w", err)
	}
	compressed := d.enc.EncodeAll(raw, nil)
	return codec.WriteFrame(d.w, compressed)
}

// Close releases the encoder.
func (d *Downstream) Close() error {
	return d.enc.Close()
}

// ReadDownstreamFrame decodes one frame written by WriteFrame. Used by
// the operator-app side and by tests.
func ReadDownstreamFrame(r io.Reader, dec *zstd.Decoder) (*sensor.Frame, error) {
	compressed, err := codec.ReadFrame(r)
	if err != nil {
		return nil, err
	}
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing preview frame: %w", err)
	}
	var f sensor.Frame
	if err := codec.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding preview frame: %w", err)
	}
	return &f, nil
}
