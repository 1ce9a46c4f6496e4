package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ncmbridge/config"
	"ncmbridge/core/lifecycle"
	"ncmbridge/core/ncm"
	"ncmbridge/core/normalize"
	"ncmbridge/core/session"
	"ncmbridge/logger"
)

// ServiceName identifies the bridge in the health payload.
const ServiceName = "ncm-bridge"

// Handler orchestrates the session coordinator, upstream gateway and
// normalizer behind each endpoint.
type Handler struct {
	cfg        *config.Config
	gateway    *ncm.Gateway
	coord      *session.Coordinator
	terminator *lifecycle.Terminator
}

// NewHandler wires the request handlers.
func NewHandler(cfg *config.Config, gateway *ncm.Gateway, coord *session.Coordinator) *Handler {
	return &Handler{
		cfg:        cfg,
		gateway:    gateway,
		coord:      coord,
		terminator: lifecycle.NewTerminator(),
	}
}

// handle funnels handler failures into the single error translation point.
func handle(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, err)
		}
	}
}

// requestCookie resolves the credential for one request: the x-ncm-cookie
// header wins over the cookie query parameter, which wins over the stored
// session.
func (h *Handler) requestCookie(r *http.Request) string {
	if fromHeader := strings.TrimSpace(r.Header.Get("x-ncm-cookie")); fromHeader != "" {
		return fromHeader
	}
	return h.coord.Resolve(r.URL.Query().Get("cookie"))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) error {
	store := h.coord.Store()
	return respond(w, map[string]interface{}{
		"ok":          true,
		"service":     ServiceName,
		"has_cookie":  store.Get() != "",
		"cookie_file": store.File(),
	})
}

func (h *Handler) authSession(w http.ResponseWriter, r *http.Request) error {
	store := h.coord.Store()
	cookie := store.Get()
	return respond(w, map[string]interface{}{
		"has_cookie":    cookie != "",
		"cookie_length": len(cookie),
		"persisted":     store.HasPersisted(),
		"cookie_file":   store.File(),
	})
}

func (h *Handler) shutdown(w http.ResponseWriter, r *http.Request) error {
	logger.Info("shutdown requested")
	err := respond(w, map[string]interface{}{
		"ok":            true,
		"shutting_down": true,
	})
	h.terminator.ExitSoon()
	return err
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) error {
	keywords := strings.TrimSpace(r.URL.Query().Get("keywords"))
	if keywords == "" {
		// Nothing to search for; an empty result beats an upstream trip.
		return respond(w, itemsResponse{Items: []interface{}{}})
	}

	limit := clamp(intQuery(r, "limit", 30), 1, 200)
	offset := max(0, intQuery(r, "offset", 0))
	level := qualityLevel(r)
	cookie := h.requestCookie(r)

	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("type", "1")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	setCookieParam(params, cookie)

	env, err := h.gateway.Invoke(r.Context(), ncm.OpSearch, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpSearch); err != nil {
		return err
	}

	items := []interface{}{}
	if result, ok := env.Body["result"].(map[string]interface{}); ok {
		items = normalizeSongs(result["songs"], level)
	}
	return respond(w, itemsResponse{Items: items})
}

func (h *Handler) playlistTracks(w http.ResponseWriter, r *http.Request) error {
	playlistID := intQuery(r, "playlist_id", 0)
	if playlistID <= 0 {
		return badRequest("playlist_id is required")
	}

	limit := clamp(intQuery(r, "limit", 100), 1, 1000)
	offset := max(0, intQuery(r, "offset", 0))
	level := qualityLevel(r)
	cookie := h.requestCookie(r)

	params := url.Values{}
	params.Set("id", strconv.Itoa(playlistID))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	setCookieParam(params, cookie)

	env, err := h.gateway.Invoke(r.Context(), ncm.OpPlaylistTrackAll, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpPlaylistTrackAll); err != nil {
		return err
	}

	return respond(w, itemsResponse{Items: normalizeSongs(env.Body["songs"], level)})
}

func (h *Handler) playlists(w http.ResponseWriter, r *http.Request) error {
	limit := clamp(intQuery(r, "limit", 100), 1, 1000)
	offset := max(0, intQuery(r, "offset", 0))
	sourceLabel := r.URL.Query().Get("source_label")
	cookie := h.requestCookie(r)

	uid := int64(intQuery(r, "uid", 0))
	if uid <= 0 {
		resolved, err := h.coord.CurrentUserID(r.Context(), cookie)
		if err != nil {
			return err
		}
		uid = resolved
	}
	if uid <= 0 {
		logger.Warn("playlists rejected: uid unavailable")
		return unauthorized("user not logged in or uid unavailable")
	}

	params := url.Values{}
	params.Set("uid", strconv.FormatInt(uid, 10))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	setCookieParam(params, cookie)

	env, err := h.gateway.Invoke(r.Context(), ncm.OpUserPlaylist, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpUserPlaylist); err != nil {
		return err
	}
	h.coord.Absorb(env)

	items := []interface{}{}
	if raw, ok := env.Body["playlist"].([]interface{}); ok {
		for _, entry := range raw {
			record, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if playlist := normalize.Playlist(record, sourceLabel); playlist != nil {
				items = append(items, playlist)
			}
		}
	}
	logger.Info("playlists response", logger.Int("count", len(items)))
	return respond(w, itemsResponse{Items: items})
}

func (h *Handler) songURL(w http.ResponseWriter, r *http.Request) error {
	songID := intQuery(r, "song_id", 0)
	if songID <= 0 {
		return badRequest("song_id is required")
	}

	level := qualityLevel(r)
	cookie := h.requestCookie(r)

	params := url.Values{}
	params.Set("id", strconv.Itoa(songID))
	params.Set("level", level)
	setCookieParam(params, cookie)

	env, err := h.gateway.Invoke(r.Context(), ncm.OpSongURLV1, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpSongURLV1); err != nil {
		return err
	}

	row := firstDataRow(env.Body)
	streamURL, _ := row["url"].(string)
	if streamURL == "" {
		return notFound("song url unavailable")
	}

	fallbackExt := "mp3"
	if ext, ok := row["type"].(string); ok && ext != "" {
		fallbackExt = ext
	}
	var bitrate *int64
	if br, ok := row["br"].(float64); ok {
		v := int64(br)
		bitrate = &v
	}

	return respond(w, map[string]interface{}{
		"url":      streamURL,
		"ext_hint": normalize.GuessExtension(streamURL, fallbackExt),
		"level":    level,
		"bitrate":  bitrate,
	})
}

func (h *Handler) lyric(w http.ResponseWriter, r *http.Request) error {
	songID := intQuery(r, "song_id", 0)
	if songID <= 0 {
		return badRequest("song_id is required")
	}

	params := url.Values{}
	params.Set("id", strconv.Itoa(songID))
	setCookieParam(params, h.requestCookie(r))

	env, err := h.gateway.Invoke(r.Context(), ncm.OpLyric, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLyric); err != nil {
		return err
	}
	// Lyric payloads are passed through opaque; the player parses them.
	return respond(w, map[string]interface{}{"body": env.Body})
}

func (h *Handler) loginStatus(w http.ResponseWriter, r *http.Request) error {
	return h.authPassthrough(w, r, ncm.OpLoginStatus)
}

func (h *Handler) loginRefresh(w http.ResponseWriter, r *http.Request) error {
	return h.authPassthrough(w, r, ncm.OpLoginRefresh)
}

// authPassthrough runs a session-bearing auth operation, absorbs any
// refreshed cookie, and mirrors the upstream body back.
func (h *Handler) authPassthrough(w http.ResponseWriter, r *http.Request, op string) error {
	params := url.Values{}
	setCookieParam(params, h.requestCookie(r))

	env, err := h.gateway.Invoke(r.Context(), op, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, op); err != nil {
		return err
	}
	cookie := h.coord.Absorb(env)
	return respond(w, bodyCookieResponse{Body: env.Body, Cookie: cookiePtr(cookie)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	params := url.Values{}
	setCookieParam(params, h.requestCookie(r))

	env, err := h.gateway.Invoke(r.Context(), ncm.OpLogout, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLogout); err != nil {
		return err
	}
	// Logout always clears the stored session, whatever upstream returned.
	h.coord.Store().Set("", "logout")
	return respond(w, bodyCookieResponse{Body: env.Body})
}

func (h *Handler) qrKey(w http.ResponseWriter, r *http.Request) error {
	env, err := h.gateway.Invoke(r.Context(), ncm.OpLoginQrKey, url.Values{})
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLoginQrKey); err != nil {
		return err
	}
	cookie := h.coord.Absorb(env)
	return respond(w, bodyCookieResponse{Body: env.Body, Cookie: cookiePtr(cookie)})
}

func (h *Handler) qrCreate(w http.ResponseWriter, r *http.Request) error {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		return badRequest("key is required")
	}

	qrimg := r.URL.Query().Get("qrimg")
	if qrimg == "" {
		qrimg = "true"
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("qrimg", qrimg)
	setCookieParam(params, h.requestCookie(r))

	env, err := h.gateway.Invoke(r.Context(), ncm.OpLoginQrCreate, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLoginQrCreate); err != nil {
		return err
	}
	cookie := h.coord.Absorb(env)
	return respond(w, bodyCookieResponse{Body: env.Body, Cookie: cookiePtr(cookie)})
}

// qrCheckAccepted lists the poll outcomes that are not errors: expired,
// waiting, scanned, confirmed.
var qrCheckAccepted = []int{200, 800, 801, 802, 803}

func (h *Handler) qrCheck(w http.ResponseWriter, r *http.Request) error {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		return badRequest("key is required")
	}

	params := url.Values{}
	params.Set("key", key)
	setCookieParam(params, h.requestCookie(r))

	env, err := h.gateway.Invoke(r.Context(), ncm.OpLoginQrCheck, params)
	if err != nil {
		return err
	}
	if err := ncm.EnsureAccepted(env, ncm.OpLoginQrCheck, qrCheckAccepted...); err != nil {
		return err
	}
	cookie := h.coord.Absorb(env)
	return respond(w, bodyCookieResponse{Body: env.Body, Cookie: cookiePtr(cookie)})
}

type itemsResponse struct {
	Items []interface{} `json:"items"`
}

type bodyCookieResponse struct {
	Body   map[string]interface{} `json:"body"`
	Cookie *string                `json:"cookie"`
}

func respond(w http.ResponseWriter, v interface{}) error {
	writeJSON(w, http.StatusOK, v)
	return nil
}

// normalizeSongs converts a raw song array, dropping records the
// normalizer rejected.
func normalizeSongs(raw interface{}, level string) []interface{} {
	items := []interface{}{}
	list, ok := raw.([]interface{})
	if !ok {
		return items
	}
	for _, entry := range list {
		record, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if song := normalize.Song(record, level, ""); song != nil {
			items = append(items, song)
		}
	}
	return items
}

// firstDataRow pulls body.data[0] as an object, empty when absent.
func firstDataRow(body map[string]interface{}) map[string]interface{} {
	data, ok := body["data"].([]interface{})
	if !ok || len(data) == 0 {
		return map[string]interface{}{}
	}
	row, ok := data[0].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return row
}

func setCookieParam(params url.Values, cookie string) {
	if cookie != "" {
		params.Set("cookie", cookie)
	}
}

func cookiePtr(cookie string) *string {
	if cookie == "" {
		return nil
	}
	return &cookie
}

func qualityLevel(r *http.Request) string {
	level := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))
	if level == "" {
		return "standard"
	}
	return level
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
