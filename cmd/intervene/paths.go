package main

import (
	"path/filepath"
	"strings"

	"github.com/samcharles93/intervene/internal/hub"
)

// resolveCacheDir picks the download cache: the flag, then the hub default.
func resolveCacheDir(flag string) (string, error) {
	if v := strings.TrimSpace(flag); v != "" {
		return filepath.Clean(v), nil
	}
	return hub.DefaultCacheDir()
}
