package imaging

import (
	"encoding/base64"
	"strings"

	"github.com/styleglow/analyzer/internal/domain"
)

// DecodePayload accepts either raw base64 or a data URL
// (data:image/jpeg;base64,...) and returns the image bytes. Capture widgets
// hand over data URLs; API callers send bare base64.
func DecodePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, domain.ErrDecode("empty image payload")
	}

	if strings.HasPrefix(payload, "data:") {
		commaIdx := strings.Index(payload, ",")
		if commaIdx == -1 {
			return nil, domain.ErrDecode("invalid data URL: missing comma separator")
		}
		meta := payload[5:commaIdx]
		if !strings.Contains(meta, "base64") {
			return nil, domain.ErrDecode("data URL must be base64 encoded")
		}
		payload = payload[commaIdx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.ErrDecode("invalid base64 image payload")
	}
	return data, nil
}

// EncodePayload returns the bare base64 form sent on the wire.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
