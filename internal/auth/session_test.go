package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snatchdl/snatch/internal/domain"
)

func TestSessions_TokenRoundTrip(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)

	token, err := s.Token(&domain.User{ID: 42, Username: "alice"})
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	user, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != 42 {
		t.Errorf("user id = %d, want 42", user.ID)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}
}

func TestSessions_VerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSessions("secret-one", time.Hour, false)
	verifier := NewSessions("secret-two", time.Hour, false)

	token, err := issuer.Token(&domain.User{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSessions_VerifyRejectsTamperedToken(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)

	token, err := s.Token(&domain.User{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := s.Verify(tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSessions_VerifyRejectsGarbage(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)
	if _, err := s.Verify("not.a.token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSessions_FromRequest_BearerHeader(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)
	token, _ := s.Token(&domain.User{ID: 7, Username: "carol"})

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	user, err := s.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if user.ID != 7 {
		t.Errorf("user id = %d, want 7", user.ID)
	}
}

func TestSessions_FromRequest_Cookie(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)
	token, _ := s.Token(&domain.User{ID: 8, Username: "dave"})

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(s.NewCookie(token))

	user, err := s.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if user.Username != "dave" {
		t.Errorf("username = %q, want dave", user.Username)
	}
}

func TestSessions_FromRequest_NoCredentials(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	if _, err := s.FromRequest(req); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSessions_Cookies(t *testing.T) {
	s := NewSessions("test-secret", time.Hour, true)

	cookie := s.NewCookie("abc")
	if cookie.Name != CookieName || cookie.Value != "abc" {
		t.Errorf("cookie = %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Error("session cookie must be HttpOnly and Secure")
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("max age = %d, want 3600", cookie.MaxAge)
	}

	cleared := s.ClearCookie()
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Errorf("clear cookie = %+v", cleared)
	}
}

func TestGitHub_Configured(t *testing.T) {
	if NewGitHub("", "").Configured() {
		t.Error("empty credentials should not be configured")
	}
	if !NewGitHub("id", "secret").Configured() {
		t.Error("both credentials present should be configured")
	}
}

func TestGitHub_AuthorizeURL(t *testing.T) {
	g := NewGitHub("client123", "secret")

	got := g.AuthorizeURL("https://app.example.com/api/auth?action=callback")
	if !strings.HasPrefix(got, "https://github.com/login/oauth/authorize?") {
		t.Errorf("url = %q", got)
	}
	if !strings.Contains(got, "client_id=client123") {
		t.Errorf("url missing client_id: %q", got)
	}
	if !strings.Contains(got, "scope=read%3Auser") {
		t.Errorf("url missing scope: %q", got)
	}
}

func TestGitHub_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/oauth/access_token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["code"] != "thecode" {
			t.Errorf("code = %q", body["code"])
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_token"})
	}))
	defer srv.Close()

	g := NewGitHub("id", "secret")
	g.AuthBase = srv.URL

	token, err := g.Exchange(context.Background(), "thecode")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token != "gho_token" {
		t.Errorf("token = %q", token)
	}
}

func TestGitHub_Exchange_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error_description": "bad code"})
	}))
	defer srv.Close()

	g := NewGitHub("id", "secret")
	g.AuthBase = srv.URL

	if _, err := g.Exchange(context.Background(), "bad"); err == nil {
		t.Error("expected error for a rejected code")
	}
}

func TestGitHub_FetchUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_token" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 9999, "login": "octocat"})
	}))
	defer srv.Close()

	g := NewGitHub("id", "secret")
	g.APIBase = srv.URL

	user, err := g.FetchUser(context.Background(), "gho_token")
	if err != nil {
		t.Fatalf("FetchUser() error = %v", err)
	}
	if user.Login != "octocat" {
		t.Errorf("login = %q", user.Login)
	}
	if user.GithubID() != "9999" {
		t.Errorf("github id = %q, want 9999", user.GithubID())
	}
}
