// Package authtest builds token services with throwaway RSA keys for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"launchpadResume/internal/auth"
)

// Keys returns a fresh PEM encoded RSA key pair.
func Keys(t testing.TB) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	return privatePEM, publicPEM
}

// NewTokenService returns a token service with a one minute access TTL and a one hour refresh TTL.
func NewTokenService(t testing.TB) *auth.TokenService {
	t.Helper()
	privatePEM, publicPEM := Keys(t)
	svc, err := auth.NewTokenService(privatePEM, publicPEM, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

// Bearer issues an access token for userID and formats it as an Authorization header value.
func Bearer(t testing.TB, svc *auth.TokenService, userID uint, mustChangePassword bool) string {
	t.Helper()
	pair, err := svc.Issue(userID, mustChangePassword)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + pair.AccessToken
}
