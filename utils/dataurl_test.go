package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  string
		wantData  string
		wantError bool
	}{
		{name: "png", input: "data:image/png;base64,aGVsbG8=", wantType: "image/png", wantData: "hello"},
		{name: "upper case type", input: "data:IMAGE/JPEG;base64,aGk=", wantType: "image/jpeg", wantData: "hi"},
		{name: "not a data url", input: "https://example.com/a.png", wantError: true},
		{name: "no payload", input: "data:image/png;base64", wantError: true},
		{name: "not base64", input: "data:text/plain,hello", wantError: true},
		{name: "bad base64", input: "data:image/png;base64,@@@", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, data, err := DecodeDataURL(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantType, mediaType)
			assert.Equal(t, tt.wantData, string(data))
		})
	}
}
