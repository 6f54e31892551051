// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "testing"

func TestBackendAddress(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://signup.example.org", want: "signup.example.org:443"},
		{url: "https://signup.example.org:8443", want: "signup.example.org:8443"},
		{url: "http://10.0.0.4", want: "10.0.0.4:80"},
		{url: "gopher://signup.example.org", wantErr: true},
		{url: "https://", wantErr: true},
		{url: "://bad", wantErr: true},
	}
	for _, tt := range tests {
		got, err := backendAddress(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("backendAddress(%q) = %q, want error", tt.url, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("backendAddress(%q): %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("backendAddress(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
