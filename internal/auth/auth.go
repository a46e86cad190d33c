// Package auth resolves the static credential used against the telemetry provider.
//
// The provider authenticates every request with an API key header. The key is
// either configured inline or read from a file; file sources are re-read on
// every call so a rotated key is picked up by the next discovery iteration.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ErrNoCredential is returned when the resolved credential is empty.
var ErrNoCredential = errors.New("provider credential is empty")

// Header names the provider accepts. Both are sent.
const (
	HeaderGridAPIKey = "x-grid-api-key"
	HeaderAPIKey     = "x-api-key"
)

// Source yields the current credential.
type Source interface {
	Credential() (string, error)
}

// Static is a fixed credential.
type Static string

// Credential returns the key, or ErrNoCredential when blank.
func (s Static) Credential() (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", ErrNoCredential
	}
	return key, nil
}

// File reads the credential from a file on every call.
type File struct {
	Path string
}

// Credential reads and trims the key file.
func (f File) Credential() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s: %w", f.Path, ErrNoCredential)
	}
	return key, nil
}

// NewSource picks a file source when keyFile is set, else a static key.
func NewSource(key, keyFile string) Source {
	if keyFile != "" {
		return File{Path: keyFile}
	}
	return Static(key)
}

// SetHeaders applies the credential headers to an outgoing request.
func SetHeaders(h http.Header, key string) {
	h.Set(HeaderGridAPIKey, key)
	h.Set(HeaderAPIKey, key)
}

// Redact returns a log-safe description of a key.
func Redact(key string) string {
	if len(key) <= 4 {
		return fmt.Sprintf("****(len=%d)", len(key))
	}
	return fmt.Sprintf("%s****(len=%d)", key[:4], len(key))
}
