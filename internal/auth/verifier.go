// Package auth verifies bearer tokens issued by the managed auth provider.
//
// Verification tries asymmetric keys from the provider's JWKS endpoint first
// (newer projects sign with ES256/RS256), then falls back to the legacy HS256
// shared secret. Either mechanism may be disabled by leaving its config empty.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// TokenAudience is the audience claim the auth provider puts on user tokens.
const TokenAudience = "authenticated"

var jwksAlgorithms = []string{"ES256", "RS256", "EdDSA"}

type NewVerifierParams struct {
	// AuthBaseURL is the auth provider base URL; JWKS is fetched from
	// <AuthBaseURL>/auth/v1/.well-known/jwks.json. Empty disables JWKS.
	AuthBaseURL string
	// JWTSecret is the HS256 shared secret. Empty disables the fallback.
	JWTSecret string
}

// Verifier resolves a bearer token to a stable user id (the sub claim).
// Construct one at startup and share it; the JWKS client caches and
// refreshes keys in the background.
type Verifier struct {
	jwks   keyfunc.Keyfunc
	secret []byte
}

func NewVerifier(ctx context.Context, params NewVerifierParams) (*Verifier, error) {
	v := &Verifier{}

	if params.JWTSecret != "" {
		v.secret = []byte(params.JWTSecret)
	}

	if params.AuthBaseURL != "" {
		jwksURL := strings.TrimSuffix(params.AuthBaseURL, "/") + "/auth/v1/.well-known/jwks.json"
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			// HS256-only projects have no JWKS endpoint
			log.Warnf("jwks client setup failed (%s), relying on HS256 fallback", err)
		} else {
			v.jwks = jwks
		}
	}

	if v.jwks == nil && v.secret == nil {
		return nil, errors.New("no token verification method configured")
	}

	return v, nil
}

// Verify checks the token signature, expiry and audience, and returns the
// user id from the sub claim.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	if v.jwks != nil {
		userID, err := v.verify(token, v.jwks.Keyfunc, jwksAlgorithms)
		if err == nil {
			return userID, nil
		}
		log.Tracef("jwks verification failed (%s), trying HS256 fallback", err)
	}

	if v.secret != nil {
		return v.verify(token, v.secretKeyfunc, []string{"HS256"})
	}

	return "", fmt.Errorf("%w: no verification method succeeded", ErrInvalidToken)
}

func (v *Verifier) secretKeyfunc(_ *jwt.Token) (interface{}, error) {
	return v.secret, nil
}

func (v *Verifier) verify(token string, kf jwt.Keyfunc, algorithms []string) (string, error) {
	parsed, err := jwt.Parse(
		token,
		kf,
		jwt.WithValidMethods(algorithms),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", fmt.Errorf("%w: no sub claim", ErrInvalidToken)
	}

	return userID, nil
}
