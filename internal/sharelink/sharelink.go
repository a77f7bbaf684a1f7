// internal/sharelink/sharelink.go
//
// sharelink turns an arbitrary JSON-serializable payload into a URL-safe
// token and back. The token is standard base64 of the UTF-8 JSON bytes with
// '+' -> '-', '/' -> '_' and the trailing '=' padding stripped, so the
// alphabet is exactly [A-Za-z0-9_-].
package sharelink

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CurrentVersion is stamped into every payload this build produces.
const CurrentVersion = 1

// Decode failures come in three user-presentable kinds. Callers surface the
// message as a one-line banner and otherwise proceed as if no token were
// present.
var (
	ErrBadCharacters = errors.New("share link contains characters that don't belong in it")
	ErrDecodeFailed  = errors.New("share link could not be decoded")
	ErrParseFailed   = errors.New("share link could not be parsed")
)

// Payload is the selection-and-filter snapshot embedded in a share link. UI
// stays loosely typed on purpose: it is overlaid onto the current UI state
// through the normalizer, which tolerates any shape.
type Payload struct {
	Version   int      `json:"v"`
	Selection []string `json:"sel"`
	UI        any      `json:"ui"`
}

// Encode serializes v to JSON and wraps it in the URL-safe token form.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. The alphabet is validated before anything else so
// a mangled link is reported as bad characters rather than a decode failure.
func Decode(token string) (json.RawMessage, error) {
	if !validAlphabet(token) {
		return nil, ErrBadCharacters
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if !utf8.Valid(data) {
		return nil, ErrDecodeFailed
	}
	if !json.Valid(data) {
		return nil, ErrParseFailed
	}
	return json.RawMessage(data), nil
}

// DecodePayload decodes a token into a Payload, running the loose fields
// through defensive coercion. Selection entries that are not non-empty
// strings are dropped.
func DecodePayload(token string) (Payload, error) {
	raw, err := Decode(token)
	if err != nil {
		return Payload{}, err
	}

	var loose struct {
		Version   any   `json:"v"`
		Selection []any `json:"sel"`
		UI        any   `json:"ui"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	p := Payload{UI: loose.UI}
	if n, ok := loose.Version.(float64); ok {
		p.Version = int(n)
	}
	for _, entry := range loose.Selection {
		if s, ok := entry.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				p.Selection = append(p.Selection, s)
			}
		}
	}
	return p, nil
}

// UserMessage maps a Decode error to the one-line banner text shown to the
// user. Unknown errors get the generic decode wording.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrBadCharacters):
		return "This share link contains invalid characters and can't be used."
	case errors.Is(err, ErrParseFailed):
		return "This share link could not be read. It may be incomplete."
	default:
		return "This share link could not be decoded. It may have been damaged."
	}
}

func validAlphabet(token string) bool {
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
