package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckAuthNoTokensConfiguredAdmitsAnyRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := checkAuth(r, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckAuthAcceptsSubprotocolToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "other, secret")
	if err := checkAuth(r, []string{"secret"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckAuthAcceptsBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer secret")
	if err := checkAuth(r, []string{"secret"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckAuthRejectsMissingCredential(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := checkAuth(r, []string{"secret"}); err == nil {
		t.Fatal("expected error for missing credential")
	}
}

func TestCheckAuthRejectsWrongToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	if err := checkAuth(r, []string{"secret"}); err == nil {
		t.Fatal("expected error for wrong token")
	}
}
