package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired or was
// issued for another issuer or audience.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims of an access token. The subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	SupplierID string `json:"supplier_id,omitempty"`
}

// TokenProvider verifies access tokens issued by the identity service. With
// a private key it can also issue them, which tests and local tooling use.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewVerifier returns a TokenProvider that only validates tokens.
func NewVerifier(publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{publicKey: publicKey, issuer: issuer, audience: audience}
}

// NewTokenProvider returns a TokenProvider that signs with privateKey (RS256
// or ES256) and validates with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}
}

// IssueAccess signs an access token for userID.
func (p *TokenProvider) IssueAccess(userID, role, supplierID string) (string, time.Time, error) {
	if p.privateKey == nil {
		return "", time.Time{}, errors.New("token provider cannot sign: no private key")
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:       role,
		SupplierID: supplierID,
	}

	var method jwt.SigningMethod
	switch KeyAlg(p.privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, errors.Wrap(ErrInvalidKey, "unsupported signing key")
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign access token")
	}
	return token, expiresAt, nil
}

// ValidateAccess checks signature, expiry, issuer and audience and returns
// the claims.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return p.publicKey, nil },
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate jti")
	}
	return hex.EncodeToString(b), nil
}
