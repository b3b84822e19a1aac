package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ParseClaims when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// Claims are the fields of the token payload the dashboard cares about.
// The signature is never checked here: the API does that on every call.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

var parser = jwt.NewParser()

// ParseClaims decodes the payload segment of token without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, mc)
	// An unknown or missing alg still leaves a decoded payload.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("decode exp: %w", err)
	}
	if exp == nil {
		return Claims{}, ErrNoExpiry
	}

	c := Claims{ExpiresAt: exp.Time}
	c.Subject, _ = mc.GetSubject()
	if c.Subject == "" {
		c.Subject = stringClaim(mc, "id")
	}
	c.Email = stringClaim(mc, "email")
	c.Role = stringClaim(mc, "role")
	return c, nil
}

// IsExpired reports whether token is unusable at now. Anything that fails to
// decode, or lacks an exp claim, counts as expired. A token whose exp equals
// the current second is expired.
func IsExpired(token string, now time.Time) bool {
	c, err := ParseClaims(token)
	if err != nil {
		return true
	}
	return c.ExpiresAt.Unix() <= now.Unix()
}

func stringClaim(mc jwt.MapClaims, name string) string {
	switch v := mc[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
