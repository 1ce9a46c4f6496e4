package session

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"ncmbridge/core/ncm"
)

// statusGateway returns a gateway whose login_status operation yields the
// given body.
func statusGateway(body map[string]interface{}) *ncm.Gateway {
	gw := ncm.NewGateway()
	gw.Register(ncm.OpLoginStatus, func(ctx context.Context, params url.Values) (*ncm.Envelope, error) {
		return &ncm.Envelope{Body: body}, nil
	})
	return gw
}

func TestResolve(t *testing.T) {
	store := tempStore(t)
	store.Set("stored-cookie", "test")
	coord := NewCoordinator(store, ncm.NewGateway())

	if got := coord.Resolve("  override  "); got != "override" {
		t.Errorf("expected trimmed override, got %q", got)
	}
	if got := coord.Resolve("   "); got != "stored-cookie" {
		t.Errorf("blank override should fall through, got %q", got)
	}
	if got := coord.Resolve(""); got != "stored-cookie" {
		t.Errorf("absent override should fall through, got %q", got)
	}
}

func TestAbsorb(t *testing.T) {
	t.Run("prefers body cookie over envelope cookie", func(t *testing.T) {
		store := tempStore(t)
		coord := NewCoordinator(store, ncm.NewGateway())

		got := coord.Absorb(&ncm.Envelope{
			Body:   map[string]interface{}{"cookie": "from-body"},
			Cookie: []string{"from-header"},
		})
		if got != "from-body" {
			t.Errorf("expected body cookie, got %q", got)
		}
		if store.Get() != "from-body" {
			t.Errorf("store not advanced, got %q", store.Get())
		}
	})

	t.Run("joins envelope cookies", func(t *testing.T) {
		store := tempStore(t)
		coord := NewCoordinator(store, ncm.NewGateway())

		got := coord.Absorb(&ncm.Envelope{
			Body:   map[string]interface{}{},
			Cookie: []string{" MUSIC_U=a ", "__csrf=b"},
		})
		if got != "MUSIC_U=a;__csrf=b" {
			t.Errorf("expected joined set-cookie values, got %q", got)
		}
	})

	t.Run("keeps current credential when nothing carried", func(t *testing.T) {
		store := tempStore(t)
		store.Set("existing", "test")
		coord := NewCoordinator(store, ncm.NewGateway())

		if got := coord.Absorb(&ncm.Envelope{Body: map[string]interface{}{}}); got != "existing" {
			t.Errorf("expected unchanged credential, got %q", got)
		}
	})
}

func TestCurrentUserID(t *testing.T) {
	newCoord := func(t *testing.T, body map[string]interface{}) *Coordinator {
		t.Helper()
		store := NewStore(filepath.Join(t.TempDir(), "cookie.json"))
		return NewCoordinator(store, statusGateway(body))
	}

	t.Run("account id wins", func(t *testing.T) {
		coord := newCoord(t, map[string]interface{}{
			"code": float64(200),
			"data": map[string]interface{}{
				"account": map[string]interface{}{"id": float64(42)},
				"profile": map[string]interface{}{"userId": float64(7)},
			},
		})
		uid, err := coord.CurrentUserID(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		if uid != 42 {
			t.Errorf("expected account id 42, got %d", uid)
		}
	})

	t.Run("profile id fallback", func(t *testing.T) {
		coord := newCoord(t, map[string]interface{}{
			"code": float64(200),
			"data": map[string]interface{}{
				"profile": map[string]interface{}{"userId": float64(7)},
			},
		})
		uid, err := coord.CurrentUserID(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		if uid != 7 {
			t.Errorf("expected profile id 7, got %d", uid)
		}
	})

	t.Run("not logged in is zero, not an error", func(t *testing.T) {
		coord := newCoord(t, map[string]interface{}{
			"code": float64(200),
			"data": map[string]interface{}{},
		})
		uid, err := coord.CurrentUserID(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		if uid != 0 {
			t.Errorf("expected 0, got %d", uid)
		}
	})

	t.Run("rejected status propagates", func(t *testing.T) {
		coord := newCoord(t, map[string]interface{}{"code": float64(301)})
		if _, err := coord.CurrentUserID(context.Background(), ""); err == nil {
			t.Fatal("expected error for rejected status")
		}
	})

	t.Run("absorbs refreshed cookie", func(t *testing.T) {
		coord := newCoord(t, map[string]interface{}{
			"code":   float64(200),
			"cookie": "refreshed",
			"data": map[string]interface{}{
				"account": map[string]interface{}{"id": float64(42)},
			},
		})
		if _, err := coord.CurrentUserID(context.Background(), ""); err != nil {
			t.Fatal(err)
		}
		if got := coord.Store().Get(); got != "refreshed" {
			t.Errorf("expected absorbed cookie, got %q", got)
		}
	})
}
