package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(sub, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		BusinessID: "7",
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(testClaims("42", "owner", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	v := &Verifier{Secret: secret}
	parsed, err := v.Parse(context.Background(), token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Subject != "42" || parsed.BusinessID != "7" || parsed.Role != "owner" {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if id, err := parsed.UserID(); err != nil || id != 42 {
		t.Fatalf("unexpected user id %d %v", id, err)
	}

	if _, err := (&Verifier{Secret: "wrong"}).Parse(context.Background(), token); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256(testClaims("42", "client", -time.Minute), "s")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&Verifier{Secret: "s"}).Parse(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "kid-1",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, testClaims("9", "client", time.Hour))
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	v := &Verifier{Keys: NewJWKSClient(srv.URL, time.Minute)}
	parsed, err := v.Parse(context.Background(), signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Subject != "9" {
		t.Fatalf("unexpected subject %q", parsed.Subject)
	}

	// HS256 must not be accepted by a verifier configured for JWKS only.
	hs, _ := SignHS256(testClaims("9", "client", time.Hour), "secret")
	if _, err := v.Parse(context.Background(), hs); err == nil {
		t.Fatal("expected hmac token to be rejected")
	}
}

func TestRequireAuthOverridesIdentityHeaders(t *testing.T) {
	v := &Verifier{Secret: "s"}
	token, _ := SignHS256(testClaims("42", "owner", time.Hour), "s")

	var gotUser, gotRole, gotBiz string
	h := RequireAuth(v)(RequireRole("owner")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get(HeaderUserID)
		gotRole = r.Header.Get(HeaderRole)
		gotBiz = r.Header.Get(HeaderBusinessID)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderUserID, "1")
	req.Header.Set(HeaderRole, "system")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser != "42" || gotRole != "owner" || gotBiz != "7" {
		t.Fatalf("identity headers not replaced: %q %q %q", gotUser, gotRole, gotBiz)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	clientToken, _ := SignHS256(testClaims("5", "client", time.Hour), "s")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d", rec.Code)
	}
}
