package credential

import (
	"errors"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims holds the timing claims read from a JWT access token.
type Claims struct {
	Iat *int64  // Issued at time
	Exp *int64  // Expiration
	Sub *string // Subject
}

// ParseClaims reads the iat/exp/sub claims of a JWT without verifying its
// signature. The client never holds the issuer's keys; the values are only
// used to estimate a lifetime the server did not report.
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.Count(rawToken, ".") != 2 {
		return nil, errors.New("not a JWT")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	result := &Claims{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		v := exp.Unix()
		result.Exp = &v
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		v := iat.Unix()
		result.Iat = &v
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		result.Sub = &sub
	}
	return result, nil
}
