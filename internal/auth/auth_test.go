package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager([]byte("secret"), time.Hour)
	token, expires, err := m.Issue("u1", "u1@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Email: "u1@example.com"}, id)
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager([]byte("secret"), time.Hour)
	good, _, err := m.Issue("u1", "")
	require.NoError(t, err)

	other, _, err := NewManager([]byte("other"), time.Hour).Issue("u1", "")
	require.NoError(t, err)

	expired := NewManager([]byte("secret"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("u1", "")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "x@example.com"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": other,
		"expired":      old,
		"alg none":     none,
		"no user id":   noUser,
		"garbage":      "not.a.token",
		"tampered":     good + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, _, err = m.Issue("", "")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := NewManager([]byte("secret"), time.Hour)
	token, _, err := m.Issue("u1", "u1@example.com")
	require.NoError(t, err)

	handler := m.Middleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(id.UserID))
	}))

	tests := []struct {
		name   string
		header string
		status int
		errMsg string
	}{
		{name: "ok", header: "Bearer " + token, status: http.StatusOK},
		{name: "lower-case scheme", header: "bearer " + token, status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized, errMsg: "Missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, errMsg: "Invalid authorization header format"},
		{name: "extra parts", header: "Bearer a b", status: http.StatusUnauthorized, errMsg: "Invalid authorization header format"},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized, errMsg: "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files/uploads", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", rec.Body.String())
				return
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.errMsg, body["error"])
		})
	}
}

func TestFromContextEmpty(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
