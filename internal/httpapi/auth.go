package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"taskforge.dev/engine/core/config"
	"github.com/gin-gonic/gin"
	"github.com/workos/workos-go/v6/pkg/usermanagement"
)

// AuthGate guards the mutating run-submission routes. Unlike the teacher's
// per-user dashboard session (internal/service/auth.go's cookie-backed
// AuthService), this engine has a single operator identity: whoever holds a
// valid WorkOS authorization code may submit runs. A code is exchanged once
// via usermanagement.AuthenticateWithCode; on success the code itself is
// cached as a session key for the fixed sessionTTL (the access token WorkOS
// returns is not kept), so a caller can reuse the same bearer value across
// requests without re-authenticating every call.
type AuthGate struct {
	clientID string
	enabled  bool

	mu       sync.Mutex
	sessions map[string]time.Time // access token/code -> expiry
}

const sessionTTL = 7 * 24 * time.Hour

// NewAuthGate wires usermanagement against cfg and returns an AuthGate. If
// cfg.APIKey is empty, auth is disabled and Middleware becomes a no-op —
// mirroring the teacher's own optional-auth posture for local/dev servers.
func NewAuthGate(cfg config.WorkOSConfig) *AuthGate {
	if cfg.APIKey == "" {
		return &AuthGate{enabled: false}
	}
	usermanagement.SetAPIKey(cfg.APIKey)
	return &AuthGate{
		clientID: cfg.ClientID,
		enabled:  true,
		sessions: make(map[string]time.Time),
	}
}

// Middleware rejects requests without a valid bearer credential. A credential
// is either a previously-exchanged code still inside its session TTL, or a
// fresh WorkOS authorization code exchanged on the spot.
func (g *AuthGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.enabled {
			c.Next()
			return
		}

		token := bearerToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
			c.Abort()
			return
		}

		if g.hasValidSession(token) {
			c.Next()
			return
		}

		if err := g.exchangeCode(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired credential"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (g *AuthGate) hasValidSession(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(g.sessions, token)
		return false
	}
	return true
}

func (g *AuthGate) exchangeCode(ctx context.Context, code string) error {
	_, err := usermanagement.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: g.clientID,
		Code:     code,
	})
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.sessions[code] = time.Now().Add(sessionTTL)
	g.mu.Unlock()
	return nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
