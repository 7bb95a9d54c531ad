package security

import (
	"errors"
	"testing"
	"time"

	"PPChat/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerify_RoundTrip(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions([]byte("test-secret"))

	token, hash, exp, err := Generate(opts, "user-1", []string{"chat"})
	req.NoError(err)
	req.True(exp.After(time.Now()))

	claims, err := Verify(opts, token, hash)
	req.NoError(err)
	req.Equal("user-1", claims.UserID())
}

func TestVerify_AcceptsUserIDClaim(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"userId": "64f0c0ffee",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(secret)
	req.NoError(err)

	claims, err := Verify(DefaultOptions(secret), signed, "")
	req.NoError(err)
	req.Equal("64f0c0ffee", claims.UserID())
}

func TestVerify_Rejects(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	token, _, _, err := Generate(opts, "user-1", nil)
	require.NoError(t, err)

	expired := opts
	expired.TTL = -time.Minute
	// Generate normalizes a non-positive TTL, so build an expired token by hand.
	old := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, err := old.SignedString(expired.Secret)
	require.NoError(t, err)

	cases := map[string]struct {
		opts  Options
		token string
		hash  string
	}{
		"empty token":   {opts: opts, token: ""},
		"wrong secret":  {opts: DefaultOptions([]byte("other")), token: token},
		"hash mismatch": {opts: opts, token: token, hash: "sha256:deadbeef"},
		"expired":       {opts: opts, token: expiredToken},
		"garbage":       {opts: opts, token: "not.a.jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Verify(tc.opts, tc.token, tc.hash)
			require.Error(t, err)
			require.True(t, errors.Is(err, errs.ErrUnauthenticated))
		})
	}
}

func TestSigningMethod_Unsupported(t *testing.T) {
	_, err := signingMethod("RS256")
	require.Error(t, err)
}
