package schemes

import (
	"strings"

	"content-fetch/internal/parts"
)

const defaultDataType = "text/plain"

// DataURL is a decoded inline-data locator.
type DataURL struct {
	ContentType string
	Base64      bool
	Data        []byte
}

// DecodeDataURL parses `[data:][mediatype][;base64],payload`. The split happens at the first comma.
func DecodeDataURL(locator string) (*DataURL, error) {
	rest := locator
	if parts.IsDataLocator(rest) {
		rest = rest[len(parts.DataPrefix):]
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrMissingComma
	}

	res := &DataURL{ContentType: defaultDataType}

	for i, token := range strings.Split(meta, ";") {
		token = strings.TrimSpace(token)
		switch {
		case i == 0 && strings.Contains(token, "/"):
			res.ContentType = strings.ToLower(token)
		case strings.EqualFold(token, "base64"):
			res.Base64 = true
		}
	}

	if payload == "" {
		return nil, ErrEmptyPayload
	}

	var err error
	if res.Base64 {
		res.Data, err = decodeBase64(percentDecode(payload, false))
	} else {
		res.Data = percentDecode(payload, true)
	}
	if err != nil {
		return nil, err
	}

	if len(res.Data) == 0 {
		return nil, ErrEmptyPayload
	}

	return res, nil
}

// percentDecode turns %XX into bytes and, when plusAsSpace is set, '+' into ' '.
// Malformed escapes are copied through literally.
func percentDecode(s string, plusAsSpace bool) []byte {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		case c == '+' && plusAsSpace:
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return out
}

// decodeBase64 decodes the standard alphabet. '=' ends the current quartet; characters outside the
// alphabet are skipped between quartets but abort decoding inside one.
func decodeBase64(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*3/4)

	var quad [4]byte
	n := 0

	flush := func() error {
		switch n {
		case 0:
		case 1:
			return ErrBadBase64
		case 2:
			out = append(out, quad[0]<<2|quad[1]>>4)
		case 3:
			out = append(out, quad[0]<<2|quad[1]>>4, quad[1]<<4|quad[2]>>2)
		}
		n = 0
		return nil
	}

	for _, c := range src {
		if c == '=' {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		v, ok := base64Value(c)
		if !ok {
			if n > 0 {
				return nil, ErrBadBase64
			}
			continue
		}

		quad[n] = v
		n++
		if n == 4 {
			out = append(out, quad[0]<<2|quad[1]>>4, quad[1]<<4|quad[2]>>2, quad[2]<<6|quad[3])
			n = 0
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func base64Value(c byte) (byte, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return c - 'A', true
	case c >= 'a' && c <= 'z':
		return c - 'a' + 26, true
	case c >= '0' && c <= '9':
		return c - '0' + 52, true
	case c == '+':
		return 62, true
	case c == '/':
		return 63, true
	default:
		return 0, false
	}
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
