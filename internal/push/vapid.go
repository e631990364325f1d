package push

import (
	"errors"
	"strings"
	"unicode"
)

const minVAPIDKeyLength = 50

var ErrInvalidVAPIDKey = errors.New("missing or invalid VAPID key: set the web push certificate public key")

// SanitizeVAPIDKey normalises a configured key to unpadded base64url.
func SanitizeVAPIDKey(value string) string {
	v := strings.TrimSpace(value)
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		v = v[1 : len(v)-1]
	}
	v = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '+':
			return '-'
		case r == '/':
			return '_'
		}
		return r
	}, v)
	return strings.TrimRight(v, "=")
}

// ValidVAPIDKey sanitises value and checks it is long enough to be a real key.
func ValidVAPIDKey(value string) (string, error) {
	key := SanitizeVAPIDKey(value)
	if len(key) < minVAPIDKeyLength {
		return "", ErrInvalidVAPIDKey
	}
	return key, nil
}
