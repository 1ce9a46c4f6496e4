package ncm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"ncmbridge/logger"
)

// Envelope is the raw result of one upstream operation call: the decoded
// JSON body plus any session cookies the upstream handed back.
type Envelope struct {
	Body   map[string]interface{}
	Cookie []string
}

// Operation performs one named upstream call with the given query-style
// payload.
type Operation func(ctx context.Context, params url.Values) (*Envelope, error)

// Gateway dispatches named operations against the upstream collaborator and
// validates result envelopes. It holds no session state of its own.
type Gateway struct {
	ops map[string]Operation
}

// NewGateway creates an empty operation registry.
func NewGateway() *Gateway {
	return &Gateway{ops: make(map[string]Operation)}
}

// Register binds an operation name to its implementation.
func (g *Gateway) Register(name string, op Operation) {
	g.ops[name] = op
}

// Validate confirms every required operation is registered. Called once at
// startup so a missing binding fails fast instead of at first request.
func (g *Gateway) Validate(required ...string) error {
	var missing []string
	for _, name := range required {
		if _, ok := g.ops[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("upstream operations not registered: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Invoke runs the named operation and checks the envelope is usable.
func (g *Gateway) Invoke(ctx context.Context, name string, params url.Values) (*Envelope, error) {
	op, ok := g.ops[name]
	if !ok {
		return nil, &UnknownOperationError{Op: name}
	}
	env, err := op(ctx, params)
	if err != nil {
		logger.Error("upstream call failed",
			logger.String("operation", name),
			logger.ErrorField(err))
		return nil, err
	}
	if env == nil || env.Body == nil {
		return nil, &InvalidResponseError{Op: name}
	}
	return env, nil
}

// EnsureAccepted validates the upstream status code embedded in the body
// against the allowed set (default {200}). Some endpoints omit the code
// entirely; that counts as success. QR-login polling passes its own allowed
// set because several "pending" codes are non-errors there.
func EnsureAccepted(env *Envelope, op string, allowed ...int) error {
	if env == nil || len(env.Body) == 0 {
		return &RejectedError{Op: op, Message: "empty body"}
	}
	raw, ok := env.Body["code"]
	if !ok {
		return nil
	}
	code, ok := toInt(raw)
	if !ok {
		return &RejectedError{Op: op, Message: fmt.Sprintf("unreadable code: %v", raw)}
	}
	if len(allowed) == 0 {
		allowed = []int{200}
	}
	for _, want := range allowed {
		if code == want {
			return nil
		}
	}
	return &RejectedError{Op: op, Code: code, Message: upstreamMessage(env.Body)}
}

// upstreamMessage pulls a human-readable failure message out of the body.
func upstreamMessage(body map[string]interface{}) string {
	if msg, ok := body["msg"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		var code int
		if _, err := fmt.Sscanf(n, "%d", &code); err == nil {
			return code, true
		}
	}
	return 0, false
}
