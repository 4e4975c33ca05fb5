package utils

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// CorrectURLScheme prefixes https:// to a bare host or path. Locators that already carry a scheme,
// including opaque ones such as data: and cid:, are returned unchanged.
func CorrectURLScheme(URL string) string {
	if u, err := url.Parse(URL); err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "") {
		return URL
	}
	if strings.Contains(URL, "://") {
		return URL
	}

	if parsed, err := url.Parse("https://" + URL); err == nil {
		return parsed.String()
	}
	return URL
}

func DrainTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

func GenerateID() (string, error) {
	bytes := make([]byte, 20)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
