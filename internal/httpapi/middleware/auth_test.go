package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func get(h http.Handler, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	h := RequireAny(keys)(okHandler)

	if code := get(h, "pub_key"); code != http.StatusOK {
		t.Fatalf("public key: want 200, got %d", code)
	}
	if code := get(h, "adm_key"); code != http.StatusOK {
		t.Fatalf("admin key: want 200, got %d", code)
	}
	if code := get(h, "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong key: want 401, got %d", code)
	}
	if code := get(h, ""); code != http.StatusUnauthorized {
		t.Fatalf("missing key: want 401, got %d", code)
	}
}

func TestRequireAny_OpenWhenUnconfigured(t *testing.T) {
	h := RequireAny(Keys{})(okHandler)
	if code := get(h, ""); code != http.StatusOK {
		t.Fatalf("want 200 with no keys configured, got %d", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	h := RequireAdmin(keys)(okHandler)

	if code := get(h, "adm_key"); code != http.StatusOK {
		t.Fatalf("admin key: want 200, got %d", code)
	}
	if code := get(h, "pub_key"); code != http.StatusForbidden {
		t.Fatalf("public key: want 403, got %d", code)
	}
	if code := get(h, ""); code != http.StatusForbidden {
		t.Fatalf("missing key: want 403, got %d", code)
	}
}

func TestBearerHeaderAccepted(t *testing.T) {
	keys := Keys{Admin: []string{"adm_key"}}
	h := RequireAdmin(keys)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer adm_key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer admin key: want 200, got %d", rec.Code)
	}
}
