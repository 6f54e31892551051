// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the stable binary schema and length-prefixed
// framing used on every serialized boundary of the orb core: the
// process-agent pipes, the livestream intake socket, and on-disk
// state blobs.
//
// The schema is CBOR with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. The same logical data always produces identical bytes, which
// keeps frame digests and test fixtures stable across processes.
//
// Framing is a 4-byte big-endian length followed by that many payload
// bytes. ReadFrame enforces MaxFrameSize so a corrupt length prefix
// cannot trigger an unbounded allocation.
package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with Core Deterministic Encoding.
var encMode cbor.EncMode

// decMode accepts standard CBOR. Unknown fields are ignored for
// forward compatibility between parent and child binaries of
// different versions.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// The fraud pipeline decodes into any-typed datums. CBOR's
		// default map type for those is map[interface{}]interface{},
		// which nothing else in the codebase can consume; force
		// map[string]any. Struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, used to delay decoding of
// payloads whose type depends on an envelope field.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR stream encoder writing to w with the
// standard encoding configuration.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR stream decoder reading from r with the
// standard decoding configuration.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
