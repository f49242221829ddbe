package app

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/config"
	"projectbeheer/backend/internal/security"
)

// Tokens returns the access token provider for cfg. A private key enables
// signing; a public key alone only verifies. Outside production, no keys at
// all select the built-in development key pair.
func Tokens(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey != "" {
		signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "JWT_PRIVATE_KEY")
		}
		pub := signer.Public()
		if cfg.JWTPublicKey != "" {
			if pub, err = security.ParsePublicKey(cfg.JWTPublicKey); err != nil {
				return nil, errors.Wrap(err, "JWT_PUBLIC_KEY")
			}
		}
		return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
	}
	if cfg.JWTPublicKey != "" {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, errors.Wrap(err, "JWT_PUBLIC_KEY")
		}
		return security.NewVerifier(pub, cfg.JWTIssuer, cfg.JWTAudience), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("JWT_PUBLIC_KEY is required in production")
	}
	slog.Warn("no JWT keys configured, using the development key pair",
		"issuer", security.TestIssuer, "audience", security.TestAudience)
	return security.NewTestTokenProvider()
}
