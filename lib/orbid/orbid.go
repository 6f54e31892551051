// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package orbid generates and parses the 128-bit identifiers attached
// to persistent signup records and captured images.
//
// The wire layout is 16 bytes, presented as 32 hex digits:
//
//	byte 0      version
//	byte 1      region code
//	bytes 2-11  random session identifier
//	bytes 12-15 big-endian per-record counter
//
// All records of one signup session share the session identifier and
// are distinguished by the counter.
package orbid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Version is the current identifier layout version.
const Version = 0x01

// Region is the closed enumeration of data-residency regions baked
// into every identifier.
type Region uint8

// Region codes. The zero value is invalid so an uninitialized
// identifier never parses.
const (
	RegionNorthAmerica Region = 0x01
	RegionEurope       Region = 0x02
	RegionSouthAmerica Region = 0x03
	RegionAsia         Region = 0x04
	RegionAfrica       Region = 0x05
	RegionOceania      Region = 0x06
)

// Valid reports whether the region code is a member of the closed
// enumeration.
func (r Region) Valid() bool {
	return r >= RegionNorthAmerica && r <= RegionOceania
}

func (r Region) String() string {
	switch r {
	case RegionNorthAmerica:
		return "north-america"
	case RegionEurope:
		return "europe"
	case RegionSouthAmerica:
		return "south-america"
	case RegionAsia:
		return "asia"
	case RegionAfrica:
		return "africa"
	case RegionOceania:
		return "oceania"
	default:
		return fmt.Sprintf("region(0x%02x)", uint8(r))
	}
}

// ParseRegion maps a configuration region name like "europe" to its
// code.
func ParseRegion(name string) (Region, error) {
	for r := RegionNorthAmerica; r <= RegionOceania; r++ {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown region %q", name)
}

// SessionSize is the length of the random session identifier.
const SessionSize = 10

// Session is the random identifier shared by all records of one
// signup session.
type Session [SessionSize]byte

// NewSession returns a cryptographically random session identifier.
func NewSession() (Session, error) {
	var s Session
	if _, err := rand.Read(s[:]); err != nil {
		return Session{}, fmt.Errorf("generating session identifier: %w", err)
	}
	return s, nil
}

// ID is one 128-bit record identifier.
type ID struct {
	Version uint8
	Region  Region
	Session Session
	Counter uint32
}

// Encode returns the 16-byte wire form.
func (id ID) Encode() [16]byte {
	var b [16]byte
	b[0] = id.Version
	b[1] = uint8(id.Region)
	copy(b[2:12], id.Session[:])
	binary.BigEndian.PutUint32(b[12:16], id.Counter)
	return b
}

// Decode parses the 16-byte wire form without validation. Use Parse
// for validated input.
func Decode(b [16]byte) ID {
	var id ID
	id.Version = b[0]
	id.Region = Region(b[1])
	copy(id.Session[:], b[2:12])
	id.Counter = binary.BigEndian.Uint32(b[12:16])
	return id
}

// String returns the 32-digit lowercase hex presentation.
func (id ID) String() string {
	encoded := id.Encode()
	return hex.EncodeToString(encoded[:])
}

// Parse decodes the hex presentation and validates version and region.
func Parse(s string) (ID, error) {
	if len(s) != 32 {
		return ID{}, fmt.Errorf("identifier %q: want 32 hex digits, got %d", s, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("identifier %q: %w", s, err)
	}
	var b [16]byte
	copy(b[:], raw)
	id := Decode(b)
	if id.Version != Version {
		return ID{}, fmt.Errorf("identifier %q: unsupported version 0x%02x", s, id.Version)
	}
	if !id.Region.Valid() {
		return ID{}, fmt.Errorf("identifier %q: unknown region 0x%02x", s, uint8(id.Region))
	}
	return id, nil
}

// Generator mints identifiers for one signup session. Safe for
// concurrent use; counters are unique within the session.
type Generator struct {
	region  Region
	session Session
	counter atomic.Uint32
}

// NewGenerator creates a generator with a fresh random session.
func NewGenerator(region Region) (*Generator, error) {
	if !region.Valid() {
		return nil, fmt.Errorf("invalid region 0x%02x", uint8(region))
	}
	session, err := NewSession()
	if err != nil {
		return nil, err
	}
	return &Generator{region: region, session: session}, nil
}

// NewID mints the next identifier of the session.
func (g *Generator) NewID() ID {
	return ID{
		Version: Version,
		Region:  g.region,
		Session: g.session,
		Counter: g.counter.Add(1) - 1,
	}
}
