package session

import (
	"context"
	"net/url"
	"strings"

	"ncmbridge/core/ncm"
	"ncmbridge/logger"
)

// Coordinator decides which credential each request uses and advances the
// store when an upstream envelope carries a refreshed cookie. It is the
// only path by which the store moves past what was loaded at startup.
type Coordinator struct {
	store   *Store
	gateway *ncm.Gateway
}

// NewCoordinator wires the coordinator to its store and gateway.
func NewCoordinator(store *Store, gateway *ncm.Gateway) *Coordinator {
	return &Coordinator{store: store, gateway: gateway}
}

// Store exposes the underlying credential store.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Resolve picks the credential for one request: a trimmed explicit override
// wins, an empty one falls through to the stored session.
func (c *Coordinator) Resolve(override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed
	}
	return c.store.Get()
}

// Absorb inspects an envelope for a refreshed cookie, preferring one nested
// in the body over envelope-level Set-Cookie values, writes it through the
// store, and returns the now-current credential.
func (c *Coordinator) Absorb(env *ncm.Envelope) string {
	if env != nil {
		if env.Body != nil {
			if fromBody := normalizeCookieValue(env.Body["cookie"]); fromBody != "" {
				c.store.Set(fromBody, "upstream body cookie")
				return c.store.Get()
			}
		}
		if fromEnv := normalizeCookieValue(env.Cookie); fromEnv != "" {
			c.store.Set(fromEnv, "upstream set-cookie")
			return c.store.Get()
		}
	}
	return c.store.Get()
}

// CurrentUserID resolves the numeric account id behind the credential via
// the upstream status operation. Not being logged in is the defined zero
// result, not an error.
func (c *Coordinator) CurrentUserID(ctx context.Context, cookie string) (int64, error) {
	params := url.Values{}
	if cookie != "" {
		params.Set("cookie", cookie)
	}
	env, err := c.gateway.Invoke(ctx, ncm.OpLoginStatus, params)
	if err != nil {
		return 0, err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLoginStatus); err != nil {
		return 0, err
	}
	c.Absorb(env)

	data, _ := env.Body["data"].(map[string]interface{})
	if data == nil {
		logger.Warn("login status carried no data object")
		return 0, nil
	}
	// Account id wins over the profile id; the two are assumed to agree.
	if id := positiveID(data, "account", "id"); id > 0 {
		return id, nil
	}
	if id := positiveID(data, "profile", "userId"); id > 0 {
		return id, nil
	}
	logger.Warn("account/profile uid unavailable")
	return 0, nil
}

// positiveID digs data[object][field] and keeps only finite positive ids.
func positiveID(data map[string]interface{}, object, field string) int64 {
	nested, ok := data[object].(map[string]interface{})
	if !ok {
		return 0
	}
	id, ok := nested[field].(float64)
	if !ok || id <= 0 {
		return 0
	}
	return int64(id)
}
