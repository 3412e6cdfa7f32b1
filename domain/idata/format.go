package idata

import (
	"fmt"
	"strings"

	"github.com/teddygroves/bibat/internal/errors"
)

// Format selects how a result is persisted.
type Format string

const (
	// FormatJSON writes one JSON document, idata.json.
	FormatJSON Format = "json"
	// FormatDirectory writes a directory, idata/, with one file per group.
	FormatDirectory Format = "directory"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatJSON, FormatDirectory} }

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatDirectory:
		return FormatDirectory, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown idata format %q (want json or directory)", s))
}
