package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution matches every failure to obtain a config, tokenizer or
	// model from the hub.
	ErrResolution = errors.New("hub: resolution failed")

	// ErrNotFound is returned by fetchers when the repo or file does not exist.
	ErrNotFound = errors.New("hub: not found")

	// ErrUnauthorized is returned when the hub rejects the token, or the repo
	// is gated for it.
	ErrUnauthorized = errors.New("hub: unauthorized")

	ErrInvalidName = errors.New("hub: invalid model name")
	ErrInvalidFile = errors.New("hub: invalid file name")
)

// Resources named in ResolutionError.
const (
	ResourceConfig    = "config"
	ResourceTokenizer = "tokenizer"
	ResourceModel     = "model"
)

type ResolutionError struct {
	Name     string
	Resource string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s for %q: %v", e.Resource, e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
