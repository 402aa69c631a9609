package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "hirehub-devapi"

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims is the typed JWT issued to clients. Version is compared with the
// account's token version so a logout invalidates every earlier token.
type Claims struct {
	Kind    string `json:"typ"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

var errWrongKind = errors.New("wrong token kind")

func sign(secret []byte, sub, kind string, version int, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Kind:    kind,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func parse(secret []byte, token, kind string, now func() time.Time) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != kind {
		return Claims{}, errWrongKind
	}
	return claims, nil
}
