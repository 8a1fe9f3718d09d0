package hub

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvCacheDir overrides the default download cache.
const EnvCacheDir = "INTERVENE_CACHE_DIR"

// DefaultCacheDir is the cache used when no cache directory is given:
// $INTERVENE_CACHE_DIR, $HF_HOME/intervene, then <user cache dir>/intervene.
// The HF cache itself uses a different layout, so only a sibling of it is
// used.
func DefaultCacheDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		return filepath.Clean(v), nil
	}
	if v := strings.TrimSpace(os.Getenv("HF_HOME")); v != "" {
		return filepath.Join(v, "intervene"), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.New("hub: no cache directory: set " + EnvCacheDir)
	}
	return filepath.Join(dir, "intervene"), nil
}
