package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
)

// --- ResolveAuth tests ---

func TestResolveAuth_TokenFromConfig(t *testing.T) {
	auth := ResolveAuth(config.ServerConfig{Mode: "live", AdminToken: "cfg-secret"})
	assert.Equal(t, "live", auth.Mode)
	assert.Equal(t, "cfg-secret", auth.AdminToken)
}

func TestResolveAuth_TokenFromEnv(t *testing.T) {
	t.Setenv("SWITCHBOARD_ADMIN_TOKEN", "env-secret")
	auth := ResolveAuth(config.ServerConfig{Mode: "live"})
	assert.Equal(t, "env-secret", auth.AdminToken)
}

func TestResolveAuth_ConfigOverridesEnv(t *testing.T) {
	t.Setenv("SWITCHBOARD_ADMIN_TOKEN", "env-secret")
	auth := ResolveAuth(config.ServerConfig{Mode: "live", AdminToken: "cfg-secret"})
	assert.Equal(t, "cfg-secret", auth.AdminToken)
}

func TestResolveAuth_DemoSentinel(t *testing.T) {
	auth := ResolveAuth(config.ServerConfig{Mode: "demo"})
	assert.Equal(t, demoAdminToken, auth.AdminToken)
}

func TestResolveAuth_DefaultsToDemoMode(t *testing.T) {
	auth := ResolveAuth(config.ServerConfig{})
	assert.Equal(t, "demo", auth.Mode)
	assert.Equal(t, demoAdminToken, auth.AdminToken)
}

func TestResolveAuth_LiveWithoutTokenHasNoAdmin(t *testing.T) {
	auth := ResolveAuth(config.ServerConfig{Mode: "live"})
	assert.Empty(t, auth.AdminToken)
}

// --- bearerToken tests ---

func bearerRequest(header string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestBearerToken_WithScheme(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken(bearerRequest("Bearer abc123")))
}

func TestBearerToken_BareValue(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken(bearerRequest("abc123")))
}

func TestBearerToken_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken(bearerRequest("Bearer   abc123  ")))
}

func TestBearerToken_Missing(t *testing.T) {
	assert.Empty(t, bearerToken(bearerRequest("")))
}

// --- principal scoping tests ---

func TestCanActFor_Admin(t *testing.T) {
	assert.True(t, canActFor(domain.AdminPrincipal(), "any-agent"))
}

func TestCanActFor_AgentSelf(t *testing.T) {
	assert.True(t, canActFor(domain.AgentPrincipal("agent-1"), "agent-1"))
}

func TestCanActFor_AgentOther(t *testing.T) {
	assert.False(t, canActFor(domain.AgentPrincipal("agent-1"), "agent-2"))
}

// --- authRateLimiter tests ---

func TestAuthRateLimiter_AllowInitial(t *testing.T) {
	limiter := newAuthRateLimiter()
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_AllowAfterFewFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < 5; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_BlockAfterMaxFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.False(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_DifferentIPs(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}

	// Different IP should still be allowed
	assert.True(t, limiter.allow("192.168.1.2:12345"))
}

func TestAuthRateLimiter_IPWithoutPort(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1")
	}
	assert.False(t, limiter.allow("192.168.1.1"))
}

func TestAuthRateLimiter_ExpiredFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	// Add old failures (before the window)
	limiter.mu.Lock()
	host := "192.168.1.1"
	oldTime := time.Now().Add(-authRateWindow - time.Minute)
	for i := 0; i < authRateMaxFails; i++ {
		limiter.failures[host] = append(limiter.failures[host], oldTime)
	}
	limiter.mu.Unlock()

	// Old failures should be cleaned up, so allow should return true
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

// --- checkWebSocketOrigin tests ---

func originRequest(origin string) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/events", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCheckWebSocketOrigin_NoOriginHeader(t *testing.T) {
	check := checkWebSocketOrigin(nil)
	assert.True(t, check(originRequest("")))
}

func TestCheckWebSocketOrigin_EmptyAllowedList(t *testing.T) {
	check := checkWebSocketOrigin(nil)
	assert.False(t, check(originRequest("http://evil.com")))
}

func TestCheckWebSocketOrigin_Wildcard(t *testing.T) {
	check := checkWebSocketOrigin([]string{"*"})
	assert.True(t, check(originRequest("http://anything.com")))
}

func TestCheckWebSocketOrigin_SpecificMatch(t *testing.T) {
	check := checkWebSocketOrigin([]string{"http://allowed.com"})
	assert.True(t, check(originRequest("http://allowed.com")))
}

func TestCheckWebSocketOrigin_SpecificNoMatch(t *testing.T) {
	check := checkWebSocketOrigin([]string{"http://allowed.com"})
	assert.False(t, check(originRequest("http://evil.com")))
}

func TestCheckWebSocketOrigin_MultipleAllowed(t *testing.T) {
	check := checkWebSocketOrigin([]string{"http://one.com", "http://two.com"})
	assert.True(t, check(originRequest("http://one.com")))
	assert.True(t, check(originRequest("http://two.com")))
	assert.False(t, check(originRequest("http://three.com")))
}
