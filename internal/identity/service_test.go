package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	ident Identity
	err   error
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	f.calls++
	if f.err != nil {
		return Identity{}, f.err
	}
	return f.ident, nil
}

func TestAuthenticateFirstStrategyWins(t *testing.T) {
	local := &fakeVerifier{ident: Identity{Subject: "user_1"}}
	remote := &fakeVerifier{ident: Identity{Subject: "user_1"}}
	service := NewServiceWithVerifiers("", local, remote)

	ident, err := service.Authenticate(context.Background(), "token")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if ident.Subject != "user_1" {
		t.Fatalf("unexpected subject: %s", ident.Subject)
	}
	if remote.calls != 0 {
		t.Fatalf("remote verifier should not run when local succeeds")
	}
}

func TestAuthenticateFallsBackToRemote(t *testing.T) {
	local := &fakeVerifier{err: errors.New("signature mismatch")}
	remote := &fakeVerifier{ident: Identity{Subject: "user_2"}}
	service := NewServiceWithVerifiers("", local, remote)

	ident, err := service.Authenticate(context.Background(), "session-token")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if ident.Subject != "user_2" {
		t.Fatalf("unexpected subject: %s", ident.Subject)
	}
	if local.calls != 1 || remote.calls != 1 {
		t.Fatalf("expected both strategies attempted, got local=%d remote=%d", local.calls, remote.calls)
	}
}

func TestAuthenticateAllStrategiesFail(t *testing.T) {
	service := NewServiceWithVerifiers("",
		&fakeVerifier{err: errors.New("bad signature")},
		&fakeVerifier{err: errors.New("provider unreachable")},
	)

	_, err := service.Authenticate(context.Background(), "token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthenticateRejectsNonAdminSubject(t *testing.T) {
	service := NewServiceWithVerifiers("user_admin",
		&fakeVerifier{ident: Identity{Subject: "user_other"}},
	)

	_, err := service.Authenticate(context.Background(), "token")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthenticateEmptyToken(t *testing.T) {
	service := NewServiceWithVerifiers("", &fakeVerifier{ident: Identity{Subject: "x"}})

	if _, err := service.Authenticate(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	service := NewServiceWithVerifiers("user_admin",
		&fakeVerifier{ident: Identity{Subject: "user_admin"}},
	)

	router := gin.New()
	router.Use(AdminMiddleware(service))
	router.GET("/protected", func(c *gin.Context) {
		ident, ok := RequireAdmin(c)
		if !ok {
			c.JSON(500, gin.H{"error": "identity missing"})
			return
		}
		c.JSON(200, gin.H{"subject": ident.Subject})
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", 401},
		{"not bearer", "Basic abc", 401},
		{"valid", "Bearer good-token", 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestAdminMiddlewareForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)

	service := NewServiceWithVerifiers("user_admin",
		&fakeVerifier{ident: Identity{Subject: "user_intruder"}},
	)

	router := gin.New()
	router.Use(AdminMiddleware(service))
	router.GET("/protected", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer stolen")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 403 {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
