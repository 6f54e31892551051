// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"context"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/lumen-devices/lumencore/lib/port"
)

// frameDomainKey separates frame digests from every other BLAKE3 use.
// The bytes are the ASCII domain name zero-padded to 32, readable in
// hex dumps.
var frameDomainKey = [32]byte{
	'l', 'u', 'm', 'e', 'n', 'c', 'o', 'r', 'e', '.',
	'f', 'r', 'a', 'm', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Digest is a 32-byte keyed BLAKE3 digest of a frame's pixels.
type Digest [32]byte

// String returns the hex form used in signup reports and logs.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DigestFrame computes the frame-domain digest of f's pixel data.
func DigestFrame(f *Frame) Digest {
	hasher, err := blake3.NewKeyed(frameDomainKey[:])
	if err != nil {
		// NewKeyed fails only on a key that is not 32 bytes.
		panic("sensor: bad frame domain key: " + err.Error())
	}
	hasher.Write(f.Pixels)
	var digest Digest
	hasher.Digest().Read(digest[:])
	return digest
}

// Record is the notary's account of one captured frame, attached to
// the signup report.
type Record struct {
	Digest    Digest `cbor:"digest"`
	Seq       uint64 `cbor:"seq"`
	Timestamp int64  `cbor:"timestamp_ns"`
}

// Notary is the task agent that digests every frame it receives. It
// sits on a drop-on-full edge like any other frame consumer; a gap in
// the sequence numbers means the frame was dropped at the sensor and
// is simply absent from the record.
type Notary struct {
	name string
}

// NewNotary creates a notary agent.
func NewNotary(name string) *Notary { return &Notary{name: name} }

func (n *Notary) Name() string { return n.name }

// RunTask digests frames until the port closes. Each record carries
// the chain of the originating frame message so the report can be
// joined against inference outputs.
func (n *Notary) RunTask(ctx context.Context, p *port.Inner[*Frame, Record]) error {
	for {
		m, err := p.Recv(ctx)
		if err != nil {
			return err
		}
		record := Record{
			Digest:    DigestFrame(m.Value),
			Seq:       m.Seq,
			Timestamp: m.Value.Timestamp.UnixNano(),
		}
		if err := p.SendChained(ctx, record, m.Seq); err != nil {
			return err
		}
	}
}
