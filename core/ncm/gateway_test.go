package ncm

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func TestInvoke(t *testing.T) {
	t.Run("unknown operation", func(t *testing.T) {
		gw := NewGateway()
		_, err := gw.Invoke(context.Background(), "nope", url.Values{})
		var unknown *UnknownOperationError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownOperationError, got %v", err)
		}
	})

	t.Run("nil envelope is invalid", func(t *testing.T) {
		gw := NewGateway()
		gw.Register("op", func(ctx context.Context, params url.Values) (*Envelope, error) {
			return nil, nil
		})
		_, err := gw.Invoke(context.Background(), "op", url.Values{})
		var invalid *InvalidResponseError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidResponseError, got %v", err)
		}
	})

	t.Run("passes params through", func(t *testing.T) {
		gw := NewGateway()
		var seen url.Values
		gw.Register("op", func(ctx context.Context, params url.Values) (*Envelope, error) {
			seen = params
			return &Envelope{Body: map[string]interface{}{}}, nil
		})
		params := url.Values{}
		params.Set("keywords", "hello")
		if _, err := gw.Invoke(context.Background(), "op", params); err != nil {
			t.Fatal(err)
		}
		if seen.Get("keywords") != "hello" {
			t.Errorf("params not forwarded: %v", seen)
		}
	})
}

func TestValidate(t *testing.T) {
	gw := NewGateway()
	gw.Register("present", func(ctx context.Context, params url.Values) (*Envelope, error) {
		return &Envelope{Body: map[string]interface{}{}}, nil
	})

	if err := gw.Validate("present"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := gw.Validate("present", "absent"); err == nil {
		t.Error("expected error for missing operation")
	}
}

func TestEnsureAccepted(t *testing.T) {
	t.Run("empty body rejected", func(t *testing.T) {
		var rejected *RejectedError
		if err := EnsureAccepted(nil, "op"); !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedError, got %v", err)
		}
		if err := EnsureAccepted(&Envelope{Body: map[string]interface{}{}}, "op"); !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedError for empty body, got %v", err)
		}
	})

	t.Run("absent code is success", func(t *testing.T) {
		env := &Envelope{Body: map[string]interface{}{"lrc": "..."}}
		if err := EnsureAccepted(env, "lyric"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("default allowed set", func(t *testing.T) {
		ok := &Envelope{Body: map[string]interface{}{"code": float64(200)}}
		if err := EnsureAccepted(ok, "op"); err != nil {
			t.Errorf("code 200 should pass: %v", err)
		}

		pending := &Envelope{Body: map[string]interface{}{"code": float64(801)}}
		var rejected *RejectedError
		if err := EnsureAccepted(pending, "op"); !errors.As(err, &rejected) {
			t.Fatalf("code 801 should be rejected by default, got %v", err)
		}
		if rejected.Code != 801 {
			t.Errorf("expected code 801 carried, got %d", rejected.Code)
		}
	})

	t.Run("per-call allowed set", func(t *testing.T) {
		pending := &Envelope{Body: map[string]interface{}{"code": float64(801)}}
		if err := EnsureAccepted(pending, "login_qr_check", 200, 800, 801, 802, 803); err != nil {
			t.Errorf("code 801 should pass the QR set: %v", err)
		}
	})

	t.Run("carries upstream message", func(t *testing.T) {
		env := &Envelope{Body: map[string]interface{}{
			"code": float64(301),
			"msg":  "need login",
		}}
		err := EnsureAccepted(env, "user_playlist")
		var rejected *RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedError, got %v", err)
		}
		if rejected.Message != "need login" {
			t.Errorf("expected upstream msg carried, got %q", rejected.Message)
		}
	})

	t.Run("message field fallback", func(t *testing.T) {
		env := &Envelope{Body: map[string]interface{}{
			"code":    float64(400),
			"message": "bad request",
		}}
		err := EnsureAccepted(env, "op")
		var rejected *RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedError, got %v", err)
		}
		if rejected.Message != "bad request" {
			t.Errorf("expected message fallback, got %q", rejected.Message)
		}
	})
}
