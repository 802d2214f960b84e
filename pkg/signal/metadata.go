package signal

import (
	"fmt"
	"strings"

	"github.com/recera/patchview/pkg/json"
)

// Metadata describes the active file
type Metadata struct {
	Frames int    `json:"frames"`
	Name   string `json:"name,omitempty"`
}

// ParseMetadata decodes file metadata. Frames must be positive.
func ParseMetadata(data []byte) (Metadata, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return Metadata{}, fmt.Errorf("%w: no metadata", ErrMalformed)
	}
	var md Metadata
	if err := json.Unmarshal([]byte(trimmed), &md); err != nil {
		return Metadata{}, fmt.Errorf("%w: metadata: %v", ErrMalformed, err)
	}
	if md.Frames <= 0 {
		return Metadata{}, fmt.Errorf("%w: frames must be positive, got %d", ErrMalformed, md.Frames)
	}
	return md, nil
}
