// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"context"
	"encoding/binary"
	"unicode/utf8"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/lib/port"
)

// DecodeFunc is a black-box image decoder: it returns the decoded
// payload and whether the frame contained one. The native QR decoder
// is crash-prone, which is why it runs behind a process agent.
type DecodeFunc func(*Frame) (string, bool)

// qrDecoder is the process agent wrapping a DecodeFunc.
type qrDecoder struct {
	name   string
	decode DecodeFunc
}

func (d *qrDecoder) Name() string { return d.name }

func (d *qrDecoder) RunProcess(ctx context.Context, p *port.Inner[*Frame, string]) error {
	for {
		m, err := p.Recv(ctx)
		if err != nil {
			return nil
		}
		payload, ok := d.decode(m.Value)
		if !ok {
			continue
		}
		if err := p.SendChained(ctx, payload, m.Seq); err != nil {
			return nil
		}
	}
}

// Embedded-payload marker bytes, "QR".
var embeddedMagic = []byte{0x51, 0x52}

// DecodeEmbedded decodes the bench bridge's pre-decoded payload
// format: the bridge stamps the payload into the leading pixels of the
// frame as magic, 2-byte big-endian length, UTF-8 text. The production
// image decoder is swapped in at registration time; the wire between
// camera, decoder, and plans is identical either way.
func DecodeEmbedded(f *Frame) (string, bool) {
	const header = 4
	if len(f.Pixels) < header {
		return "", false
	}
	if f.Pixels[0] != embeddedMagic[0] || f.Pixels[1] != embeddedMagic[1] {
		return "", false
	}
	length := int(binary.BigEndian.Uint16(f.Pixels[2:4]))
	if length == 0 || header+length > len(f.Pixels) {
		return "", false
	}
	payload := f.Pixels[header : header+length]
	if !utf8.Valid(payload) {
		return "", false
	}
	return string(payload), true
}

// RegisterQRDecoder registers the qr-decode process agent under name.
// Every binary that spawns it must call this at init with its decoder.
func RegisterQRDecoder(name string, decode DecodeFunc) {
	agent.RegisterProcess(name, func([]byte) (agent.Process[*Frame, string], error) {
		return &qrDecoder{name: name, decode: decode}, nil
	})
}
