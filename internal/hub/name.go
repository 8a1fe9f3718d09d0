package hub

import (
	"fmt"
	"path"
	"strings"
)

// ValidateName accepts hub ids such as "Qwen/Qwen2.5-0.5B" or "gpt2".
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.HasPrefix(name, "/") || strings.Contains(name, "\\"):
		return fmt.Errorf("%w: %q is not a relative id", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// cacheKey flattens a hub id into one directory name, "Qwen/Qwen2.5-0.5B"
// becoming "Qwen--Qwen2.5-0.5B".
func cacheKey(name string) string {
	return strings.ReplaceAll(name, "/", "--")
}

func validateFile(file string) error {
	clean := path.Clean(file)
	if file == "" || clean != file || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}
	return nil
}
