package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrDecode is wrapped by every Decode failure.
	ErrDecode = errors.New("token decode failed")

	ErrMalformedToken  = fmt.Errorf("%w: expected three dot-separated segments", ErrDecode)
	ErrInvalidEncoding = fmt.Errorf("%w: payload is not valid base64url", ErrDecode)
	ErrInvalidPayload  = fmt.Errorf("%w: payload is not a JSON object", ErrDecode)
)

// segmentParser decodes token segments with or without '=' padding.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// base64 standard alphabet → URL alphabet, so tokens re-encoded by tools
// that use '+' and '/' still decode.
var alphabetFixer = strings.NewReplacer("+", "-", "/", "_")

// Decode extracts the Identity carried by raw.
//
// It fails only when raw is not three '.'-separated segments, when the
// middle segment is not base64, or when it does not hold a UTF-8 JSON
// object. Missing or mistyped claims leave the matching field empty.
func Decode(raw string) (Identity, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return Identity{}, ErrMalformedToken
	}

	payload, err := segmentParser.DecodeSegment(alphabetFixer.Replace(parts[1]))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidEncoding, err.Error())
	}

	claims, err := parseClaims(payload)
	if err != nil {
		return Identity{}, err
	}

	return fromClaims(claims), nil
}

func parseClaims(payload []byte) (jwt.MapClaims, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var claims jwt.MapClaims
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidPayload)
	}
	return claims, nil
}

func fromClaims(claims jwt.MapClaims) Identity {
	id := Identity{
		ID:       stringClaim(claims[ClaimNameIdentifier]),
		Name:     stringClaim(claims[ClaimName]),
		Email:    stringClaim(claims[ClaimEmail]),
		RoleName: roleClaim(claims[ClaimRole]),
	}
	id.Role = ParseRole(id.RoleName)

	// a mistyped exp is ignored like any other mistyped claim
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.Expiry = exp.Time
	}

	return id
}

func stringClaim(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	default:
		return ""
	}
}

// roleClaim accepts a single tag or, when the backend emits several, the
// first string of the array.
func roleClaim(v any) string {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				return s
			}
		}
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
