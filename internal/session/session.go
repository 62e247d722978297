// Package session keeps login state in an AES-256-GCM encrypted cookie.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"kalam-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	UserCookie  = "kalam_session"
	AdminCookie = "kalam_admin_session"
)

var ErrExpired = errors.New("session expired")

// Data is the cookie payload.
type Data struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsLoggedIn   bool   `json:"isLoggedIn"`
	TokenVersion int    `json:"ver"`
	ExpiresAt    int64  `json:"exp"`
}

type Manager struct {
	gcm    cipher.AEAD
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// NewManager derives the AES key from cfg.SessionSecret with SHA-256.
func NewManager(cfg *config.Config) (*Manager, error) {
	key := sha256.Sum256([]byte(cfg.SessionSecret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create session cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create session gcm: %w", err)
	}

	return &Manager{
		gcm:    gcm,
		secure: cfg.CookieSecure,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}, nil
}

func (m *Manager) Encrypt(data *Data) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	nonce := make([]byte, m.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("session nonce: %w", err)
	}

	sealed := m.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (m *Manager) Decrypt(value string) (*Data, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	nonceSize := m.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("session too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := m.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if !data.IsLoggedIn || m.now().Unix() >= data.ExpiresAt {
		return nil, ErrExpired
	}
	return &data, nil
}

// Set stamps the expiry and writes the encrypted cookie.
func (m *Manager) Set(c *fiber.Ctx, name string, data *Data) error {
	expires := m.now().Add(m.ttl)
	data.IsLoggedIn = true
	data.ExpiresAt = expires.Unix()

	value, err := m.Encrypt(data)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Get returns nil, nil when the cookie is absent.
func (m *Manager) Get(c *fiber.Ctx, name string) (*Data, error) {
	value := c.Cookies(name)
	if value == "" {
		return nil, nil
	}
	return m.Decrypt(value)
}

func (m *Manager) Clear(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
