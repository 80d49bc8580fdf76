package shared

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const jpegDataURLPrefix = "data:image/jpeg;base64,"

var ErrInvalidDataURL = errors.New("invalid data url")

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// EncodeJPEGDataURL wraps raw JPEG bytes in the data URL form the analysis
// service expects.
func EncodeJPEGDataURL(data []byte) string {
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL accepts either a full data URL or a bare base64 payload.
func DecodeDataURL(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidDataURL
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, ErrInvalidDataURL
		}
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidDataURL, err)
	}
	return data, nil
}
