package anybank

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeClaims extracts the claims from a JWT payload without verifying
// the signature. Inspection only; nothing here trusts the result.
func DecodeClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("token has %d segments, want at least 2", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decoding token payload: %w", err)
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parsing token claims: %w", err)
	}
	return claims, nil
}
