package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/kofiasare/makola/internal/domain/identity"
)

// APIKeyHeader carries the caller's key on authenticated routes.
const APIKeyHeader = "api_key"

// Security authenticates API requests via HMAC-SHA256 hashed API keys and
// injects the resolved actor into the request context.
type Security struct {
	credentials identity.CredentialRepository
	pepper      []byte
}

// NewSecurity creates a Security guard with the given credential repository
// and HMAC pepper.
func NewSecurity(credentials identity.CredentialRepository, pepper []byte) *Security {
	return &Security{
		credentials: credentials,
		pepper:      pepper,
	}
}

// RequireAPIKey authenticates the request by computing the HMAC-SHA256 of
// the provided API key, looking it up, and performing a constant-time
// comparison to prevent timing attacks. On success the actor is stored in
// the request context for the authorization layer.
func (s *Security) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)
		hexHash := hex.EncodeToString(hash)

		cred, err := s.credentials.FindByKeyHash(r.Context(), hexHash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Compare against the stored hash in constant time.
		storedBytes, err := hex.DecodeString(cred.KeyHash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !cred.Role.Valid() {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		actor := identity.Actor{ID: cred.ActorID, Role: cred.Role}
		next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
	})
}

// actor extracts the authenticated actor placed by RequireAPIKey. Reaching
// a guarded route without one is a programming error in the routing table.
func actor(r *http.Request) (identity.Actor, bool) {
	return identity.ActorFromContext(r.Context())
}
