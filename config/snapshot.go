// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "sync"

// Snapshot is the shared configuration handle passed to the broker and
// agents. Readers take short locks; only the configuration-refresh
// path writes.
type Snapshot struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSnapshot wraps cfg in a shared handle.
func NewSnapshot(cfg Config) *Snapshot {
	return &Snapshot{cfg: cfg}
}

// Get returns the current configuration by value.
func (s *Snapshot) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current configuration.
func (s *Snapshot) Set(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}
