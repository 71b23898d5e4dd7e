package credentials

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the access token fields that explain most audience and tenant mistakes.
type TokenClaims struct {
	Audience  string
	TenantID  string
	Identity  string
	ExpiresAt time.Time
}

// DescribeToken reads claims from an Entra access token without verifying its signature.
// The token has just been issued to us, so only its contents are of interest.
func DescribeToken(raw string) (TokenClaims, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	var info TokenClaims
	if aud, err := claims.GetAudience(); err == nil {
		info.Audience = strings.Join(aud, ",")
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	info.TenantID, _ = claims["tid"].(string)
	for _, key := range []string{"upn", "unique_name", "appid", "oid"} {
		if v, ok := claims[key].(string); ok && v != "" {
			info.Identity = v
			break
		}
	}
	return info, nil
}
