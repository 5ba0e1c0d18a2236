package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/auth"
)

const (
	testSecret = "test-secret-key-for-testing-only"
	testUserID = "0b6f3c1e-7a52-4b8e-9d1f-2c3a4b5c6d7e"
)

func newVerifier(t *testing.T, cfg auth.Config) *auth.Verifier {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	v, err := auth.NewVerifier(cfg)
	require.NoError(t, err)
	return v
}

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := newVerifier(t, auth.Config{Issuer: "https://auth.trailhub.app/auth/v1"})

	token, expiresAt, err := v.Issue(testUserID, "hiker@example.com", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, id.UserID)
	assert.Equal(t, "hiker@example.com", id.Email)
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier(auth.Config{})
	assert.ErrorIs(t, err, auth.ErrMissingSecret)
}

func TestVerifier_InvalidToken(t *testing.T) {
	v := newVerifier(t, auth.Config{})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	token, _, err := newVerifier(t, auth.Config{Secret: "key-one"}).Issue(testUserID, "", time.Hour)
	require.NoError(t, err)

	_, err = newVerifier(t, auth.Config{Secret: "key-two"}).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestVerifier_WrongIssuer(t *testing.T) {
	token, _, err := newVerifier(t, auth.Config{Issuer: "issuer-one"}).Issue(testUserID, "", time.Hour)
	require.NoError(t, err)

	_, err = newVerifier(t, auth.Config{Issuer: "issuer-two"}).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestVerifier_WrongAudience(t *testing.T) {
	token, _, err := newVerifier(t, auth.Config{Audience: "service_role"}).Issue(testUserID, "", time.Hour)
	require.NoError(t, err)

	_, err = newVerifier(t, auth.Config{}).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestVerifier_Expired(t *testing.T) {
	v := newVerifier(t, auth.Config{})

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{auth.DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestVerifier_MissingSubjectOrExpiry(t *testing.T) {
	v := newVerifier(t, auth.Config{})

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{auth.DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(noSub)
	assert.ErrorIs(t, err, auth.ErrMissingSubject)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  testUserID,
			Audience: jwt.ClaimStrings{auth.DefaultAudience},
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v := newVerifier(t, auth.Config{})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{auth.DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestVerifier_SubjectMustBeUserID(t *testing.T) {
	v := newVerifier(t, auth.Config{})

	sign := func(subject string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				Audience:  jwt.ClaimStrings{auth.DefaultAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}

	for _, subject := range []string{"alice", "42", "00000000-0000-0000-0000-000000000000"} {
		_, err := v.Verify(sign(subject))
		assert.ErrorIs(t, err, auth.ErrInvalidSubject, subject)
	}

	id, err := v.Verify(sign("0B6F3C1E-7A52-4B8E-9D1F-2C3A4B5C6D7E"))
	require.NoError(t, err)
	assert.Equal(t, testUserID, id.UserID)
}

func TestVerifier_IssueRejectsNonUUIDUser(t *testing.T) {
	_, _, err := newVerifier(t, auth.Config{}).Issue("alice", "", time.Hour)
	assert.ErrorIs(t, err, auth.ErrInvalidSubject)
}
