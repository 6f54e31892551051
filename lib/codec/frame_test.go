// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	payloads := [][]byte{
		nil,
		{},
		[]byte("a"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, payload := range payloads {
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame(%d bytes): %v", len(payload), err)
		}
	}

	for _, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame = %d bytes, want %d", len(got), len(want))
		}
	}

	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestFrameHeaderIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	header := buf.Bytes()[:4]
	if got := binary.BigEndian.Uint32(header); got != 3 {
		t.Errorf("header = %x, want big-endian 3", header)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("ReadFrame accepted a length above MaxFrameSize")
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 10)
	buf.Write(header[:])
	buf.Write([]byte("short"))

	_, err := ReadFrame(&buf)
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame of truncated payload = %v, want framed error", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	type payload struct {
		Name  string `cbor:"name"`
		Count int    `cbor:"count"`
	}

	var buf bytes.Buffer
	want := payload{Name: "rgb-camera", Count: 42}
	if err := WriteMessage(&buf, want); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	var got payload
	if err := ReadMessage(&buf, &got); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got != want {
		t.Errorf("ReadMessage = %+v, want %+v", got, want)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	value := map[string]any{"b": 1, "a": 2, "c": []any{"x", "y"}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same logical data produced different bytes")
	}
}
