// Package tokens issues and verifies the HS256 bearer tokens used by the API.
// Access and refresh tokens are signed with different secrets and carry their
// kind so one can never stand in for the other.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"kalam-backend/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"

	SubjectUser  = "user"
	SubjectAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload of every token. Version must match the subject's
// current token version for a refresh to succeed.
type Claims struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Subject   string `json:"sub_type"`
	Kind      string `json:"kind"`
	Version   int    `json:"ver"`
	jwt.RegisteredClaims
}

// Identity is what a token is issued for.
type Identity struct {
	ID      uuid.UUID
	Email   string
	Role    string
	Subject string
	Version int
}

type Pair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// AccessSecret is exposed for the bearer middleware.
func (i *Issuer) AccessSecret() []byte {
	return i.accessSecret
}

func (i *Issuer) Issue(id Identity) (*Pair, error) {
	now := i.now()

	access, accessExp, err := i.sign(id, KindAccess, i.accessSecret, now, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.sign(id, KindRefresh, i.refreshSecret, now, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) sign(id Identity, kind string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		AccountID: id.ID.String(),
		Email:     id.Email,
		Role:      id.Role,
		Subject:   id.Subject,
		Kind:      kind,
		Version:   id.Version,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, KindAccess, i.accessSecret)
}

func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, KindRefresh, i.refreshSecret)
}

func (i *Issuer) parse(raw, kind string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(i.now(), true) {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.AccountID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID parses the subject id carried by the claims.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.AccountID)
	return id
}
