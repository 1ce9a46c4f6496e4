package ncm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Operation names the handlers invoke by. Registered against routes of the
// NeteaseCloudMusicApi service in Client.Gateway.
const (
	OpSearch           = "search"
	OpPlaylistTrackAll = "playlist_track_all"
	OpUserPlaylist     = "user_playlist"
	OpSongURLV1        = "song_url_v1"
	OpLyric            = "lyric"
	OpLoginStatus      = "login_status"
	OpLoginRefresh     = "login_refresh"
	OpLogout           = "logout"
	OpLoginQrKey       = "login_qr_key"
	OpLoginQrCreate    = "login_qr_create"
	OpLoginQrCheck     = "login_qr_check"
)

// Required is the operation set the bridge cannot run without.
var Required = []string{
	OpSearch,
	OpPlaylistTrackAll,
	OpUserPlaylist,
	OpSongURLV1,
	OpLyric,
	OpLoginStatus,
	OpLoginRefresh,
	OpLogout,
	OpLoginQrKey,
	OpLoginQrCreate,
	OpLoginQrCheck,
}

var routes = map[string]string{
	OpSearch:           "/search",
	OpPlaylistTrackAll: "/playlist/track/all",
	OpUserPlaylist:     "/user/playlist",
	OpSongURLV1:        "/song/url/v1",
	OpLyric:            "/lyric",
	OpLoginStatus:      "/login/status",
	OpLoginRefresh:     "/login/refresh",
	OpLogout:           "/logout",
	OpLoginQrKey:       "/login/qr/key",
	OpLoginQrCreate:    "/login/qr/create",
	OpLoginQrCheck:     "/login/qr/check",
}

// Client adapts the NeteaseCloudMusicApi HTTP service to the gateway's call
// contract. One named operation maps to one GET route; the cookie payload
// entry travels as the Cookie header and Set-Cookie response headers come
// back on the envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the NeteaseCloudMusicApi service.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// SetTimeout adjusts the per-call HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Gateway builds a gateway with every supported operation registered.
func (c *Client) Gateway() *Gateway {
	gw := NewGateway()
	for name, route := range routes {
		gw.Register(name, c.operation(name, route))
	}
	return gw
}

// operation builds the Operation closure for one route.
func (c *Client) operation(name, route string) Operation {
	return func(ctx context.Context, params url.Values) (*Envelope, error) {
		query := url.Values{}
		cookie := ""
		for key, vals := range params {
			if key == "cookie" {
				if len(vals) > 0 {
					cookie = vals[0]
				}
				continue
			}
			for _, v := range vals {
				query.Add(key, v)
			}
		}

		reqURL := c.baseURL + route
		if encoded := query.Encode(); encoded != "" {
			reqURL += "?" + encoded
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request for %s: %w", name, err)
		}
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
		defer resp.Body.Close()

		// The service reports API-level failures inside the body with a
		// non-200 HTTP status as well; decode regardless and let
		// EnsureAccepted judge the embedded code.
		var decoded interface{}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, &InvalidResponseError{Op: name}
		}
		body, ok := decoded.(map[string]interface{})
		if !ok {
			return nil, &InvalidResponseError{Op: name}
		}

		return &Envelope{
			Body:   body,
			Cookie: resp.Header.Values("Set-Cookie"),
		}, nil
	}
}
