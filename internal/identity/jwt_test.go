package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier("secret")
	require.NoError(t, err)

	want := Identity{ID: uuid.NewString(), Role: RoleAdmin}
	token, err := v.Issue(want, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.IsAdmin())
}

func TestVerifier_EmptyRoleDefaultsToUser(t *testing.T) {
	v, _ := NewVerifier("secret")
	token, err := v.Issue(Identity{ID: uuid.NewString()}, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, got.Role)
}

func TestVerifier_Rejects(t *testing.T) {
	v, _ := NewVerifier("secret")
	other, _ := NewVerifier("other-secret")
	id := Identity{ID: uuid.NewString(), Role: RoleUser}

	expired, err := v.Issue(id, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorContains(t, err, "expired")

	foreign, _ := other.Issue(id, time.Hour)
	_, err = v.Verify(foreign)
	assert.Error(t, err)

	_, err = v.Verify("not-a-token")
	assert.Error(t, err)

	_, err = v.Verify("")
	assert.Error(t, err)
}

func TestVerifier_IssueRequiresUUID(t *testing.T) {
	v, _ := NewVerifier("secret")
	_, err := v.Issue(Identity{ID: "bob"}, time.Hour)
	assert.Error(t, err)
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestMiddleware(t *testing.T) {
	v, _ := NewVerifier("secret")
	id := Identity{ID: uuid.NewString(), Role: RoleUser}
	token, _ := v.Issue(id, time.Hour)

	var seen Identity
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, seen)
}
