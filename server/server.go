package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"ncmbridge/config"
	"ncmbridge/core/lifecycle"
	"ncmbridge/core/ncm"
	"ncmbridge/core/session"
	"ncmbridge/logger"
)

// Start initializes and starts the bridge HTTP server.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
	})

	store := session.NewStore(session.ResolveCookieFile(cfg.CookieFile))
	store.LoadFromDisk()

	client := ncm.NewClient(cfg.NeteaseAPIURL)
	gateway := client.Gateway()
	if err := gateway.Validate(ncm.Required...); err != nil {
		logger.Fatal("upstream operation set incomplete", logger.ErrorField(err))
	}

	coord := session.NewCoordinator(store, gateway)
	handler := NewHandler(cfg, gateway, coord)

	monitor := lifecycle.NewMonitor(cfg.OwnerPID)
	monitor.Start()
	defer monitor.Stop()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("bridge listening",
			logger.String("addr", cfg.Addr()),
			logger.String("upstream", cfg.NeteaseAPIURL),
			logger.Bool("has_cookie", store.Get() != ""),
			logger.String("cookie_file", store.File()))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// NewRouter builds the bridge's route table.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware, accessLogMiddleware)

	router.HandleFunc("/health", handle(h.health)).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/admin/shutdown", handle(h.shutdown)).Methods(http.MethodGet)
	v1.HandleFunc("/search", handle(h.search)).Methods(http.MethodGet)
	v1.HandleFunc("/playlist/tracks", handle(h.playlistTracks)).Methods(http.MethodGet)
	v1.HandleFunc("/playlists", handle(h.playlists)).Methods(http.MethodGet)
	v1.HandleFunc("/song/url", handle(h.songURL)).Methods(http.MethodGet)
	v1.HandleFunc("/lyric", handle(h.lyric)).Methods(http.MethodGet)

	auth := v1.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/session", handle(h.authSession)).Methods(http.MethodGet)
	auth.HandleFunc("/login_status", handle(h.loginStatus)).Methods(http.MethodGet)
	auth.HandleFunc("/login_refresh", handle(h.loginRefresh)).Methods(http.MethodGet)
	auth.HandleFunc("/logout", handle(h.logout)).Methods(http.MethodGet)
	auth.HandleFunc("/qr/key", handle(h.qrKey)).Methods(http.MethodGet)
	auth.HandleFunc("/qr/create", handle(h.qrCreate)).Methods(http.MethodGet)
	auth.HandleFunc("/qr/check", handle(h.qrCheck)).Methods(http.MethodGet)

	return router
}
