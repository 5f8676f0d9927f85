package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sparkyfit/authority/internal/models"
	"github.com/sparkyfit/authority/internal/service"
)

type mockAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, token string) (*models.SessionRecord, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*models.SessionRecord, error) {
	return m.AuthenticateFunc(ctx, token)
}

func TestSessionAuth_MissingToken(t *testing.T) {
	mw := SessionAuth(&mockAuthenticator{})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/identity/user", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

func TestSessionAuth_UnknownToken(t *testing.T) {
	auth := &mockAuthenticator{
		AuthenticateFunc: func(ctx context.Context, token string) (*models.SessionRecord, error) {
			return nil, service.ErrSessionNotFound
		},
	}
	mw := SessionAuth(auth)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an unknown token")
	}))

	r := httptest.NewRequest(http.MethodGet, "/identity/user", nil)
	r.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

func TestSessionAuth_AuthenticatorError(t *testing.T) {
	auth := &mockAuthenticator{
		AuthenticateFunc: func(ctx context.Context, token string) (*models.SessionRecord, error) {
			return nil, errors.New("db down")
		},
	}
	mw := SessionAuth(auth)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on authenticator failure")
	}))

	r := httptest.NewRequest(http.MethodGet, "/identity/user", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", w.Code)
	}
}

func TestSessionAuth_ValidToken(t *testing.T) {
	want := &models.SessionRecord{ID: "sess-1", UserID: "alice", ActiveUserID: "bob"}
	auth := &mockAuthenticator{
		AuthenticateFunc: func(ctx context.Context, token string) (*models.SessionRecord, error) {
			if token != "tok-abc" {
				t.Errorf("token = %q; want tok-abc", token)
			}
			return want, nil
		},
	}

	var got *models.SessionRecord
	mw := SessionAuth(auth)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/identity/user", nil)
	r.Header.Set("Authorization", "Bearer tok-abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if got == nil || got.ID != want.ID || got.ActiveUserID != want.ActiveUserID {
		t.Errorf("session in context = %+v; want %+v", got, want)
	}
}
