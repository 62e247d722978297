package tokens

import (
	"testing"
	"time"

	"kalam-backend/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer() *Issuer {
	return NewIssuer(&config.Config{
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	})
}

func TestIssueAndParse(t *testing.T) {
	issuer := testIssuer()
	id := Identity{ID: uuid.New(), Email: "a@x.com", Role: "user", Subject: SubjectUser, Version: 3}

	pair, err := issuer.Issue(id)
	require.NoError(t, err)

	access, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.ID, access.UserID())
	assert.Equal(t, "a@x.com", access.Email)
	assert.Equal(t, "user", access.Role)
	assert.Equal(t, KindAccess, access.Kind)

	refresh, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 3, refresh.Version)
	assert.Equal(t, SubjectUser, refresh.Subject)
}

func TestParse_RejectsSwappedKinds(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.Issue(Identity{ID: uuid.New(), Role: "user", Subject: SubjectUser})
	require.NoError(t, err)

	_, err = issuer.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsExpired(t *testing.T) {
	issuer := testIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := issuer.Issue(Identity{ID: uuid.New(), Role: "user", Subject: SubjectUser})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsTamperedAndForeignTokens(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.Issue(Identity{ID: uuid.New(), Role: "user", Subject: SubjectUser})
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AccountID: uuid.NewString(), Kind: KindAccess})
	signed, err := foreign.SignedString([]byte("someone-else"))
	require.NoError(t, err)
	_, err = issuer.ParseAccess(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
