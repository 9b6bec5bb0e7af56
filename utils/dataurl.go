package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURL splits a base64 "data:<mime>;base64,<payload>" URL into its
// media type and decoded bytes
func DecodeDataURL(dataURL string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mediaType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("data URL must be base64 encoded")
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return strings.ToLower(mediaType), data, nil
}
