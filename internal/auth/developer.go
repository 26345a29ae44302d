package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/oe/sunrain-sub001/internal/shared"
)

const (
	// DefaultDeveloperTokenTTL is used when no lifetime is configured.
	DefaultDeveloperTokenTTL = 12 * time.Hour
	// MaxDeveloperTokenTTL is the longest lifetime the catalog accepts.
	MaxDeveloperTokenTTL = 4380 * time.Hour
)

// DeveloperTokenProvider mints ES256-signed developer tokens for the JWT catalog.
//
// Tokens carry the team ID as issuer and the key ID in the JOSE header, and are
// cached until shortly before expiry.
type DeveloperTokenProvider struct {
	*cachedProvider

	teamID string
	keyID  string
	key    *ecdsa.PrivateKey
	ttl    time.Duration
	now    func() time.Time
}

var _ TokenProvider = (*DeveloperTokenProvider)(nil)

// DeveloperTokenOption customizes a [DeveloperTokenProvider].
type DeveloperTokenOption func(*DeveloperTokenProvider)

// WithTTL sets the token lifetime, clamped to [MaxDeveloperTokenTTL].
func WithTTL(ttl time.Duration) DeveloperTokenOption {
	return func(p *DeveloperTokenProvider) {
		if ttl <= 0 {
			return
		}
		p.ttl = min(ttl, MaxDeveloperTokenTTL)
	}
}

// WithClock overrides the time source used for issued-at, expiry and validation.
func WithClock(now func() time.Time) DeveloperTokenOption {
	return func(p *DeveloperTokenProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewDeveloperTokenProvider creates a provider signing with key.
func NewDeveloperTokenProvider(teamID, keyID string, key *ecdsa.PrivateKey, opts ...DeveloperTokenOption) (*DeveloperTokenProvider, error) {
	if teamID == "" || keyID == "" || key == nil {
		return nil, fmt.Errorf("%w: team id, key id and private key are required", shared.ErrMissingCredentials)
	}

	p := &DeveloperTokenProvider{
		teamID: teamID,
		keyID:  keyID,
		key:    key,
		ttl:    DefaultDeveloperTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.cachedProvider = newCachedProvider(p.mint, p.now)
	return p, nil
}

// NewDeveloperTokenProviderFromConfig loads the .p8 key referenced by cfg.
func NewDeveloperTokenProviderFromConfig(cfg shared.AppleMusicConfig, opts ...DeveloperTokenOption) (*DeveloperTokenProvider, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: apple music team_id, key_id and private_key_path", shared.ErrMissingCredentials)
	}

	key, err := LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	if cfg.TokenTTLHours > 0 {
		opts = append([]DeveloperTokenOption{WithTTL(time.Duration(cfg.TokenTTLHours) * time.Hour)}, opts...)
	}
	return NewDeveloperTokenProvider(cfg.TeamID, cfg.KeyID, key, opts...)
}

// LoadPrivateKey reads a PEM-encoded PKCS#8 EC private key from path.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PEM-encoded PKCS#8 EC private key.
func ParsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not PEM encoded", shared.ErrInvalidCredentials)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, want ECDSA", shared.ErrInvalidCredentials, parsed)
	}
	return key, nil
}

func (p *DeveloperTokenProvider) mint(ctx context.Context) (string, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: p.key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", p.keyID),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create signer: %w", err)
	}

	issued := p.now()
	expiry := issued.Add(p.ttl)
	claims := jwt.Claims{
		Issuer:   p.teamID,
		IssuedAt: jwt.NewNumericDate(issued),
		Expiry:   jwt.NewNumericDate(expiry),
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign developer token: %w", err)
	}
	return token, expiry, nil
}

// Validate verifies the signature, issuer, key ID and expiry of raw.
func (p *DeveloperTokenProvider) Validate(raw string) bool {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		return false
	}
	if len(tok.Headers) == 0 || tok.Headers[0].KeyID != p.keyID {
		return false
	}

	var claims jwt.Claims
	if err := tok.Claims(&p.key.PublicKey, &claims); err != nil {
		return false
	}

	expected := jwt.Expected{Issuer: p.teamID, Time: p.now()}
	return claims.ValidateWithLeeway(expected, 0) == nil
}
