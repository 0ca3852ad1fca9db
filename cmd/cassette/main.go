// Package main is the entry point for the cassette deck backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/audio"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/infra/mpd"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/infra/store"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/streaming"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/transport/socketio"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3001", "HTTP server port")
	dbPath := flag.String("db", store.DefaultDBPath, "Path to the SQLite tape library")
	tick := flag.Duration("tick", deck.DefaultTickInterval, "Transport engine tick interval")
	pushInterval := flag.Duration("push-interval", 250*time.Millisecond, "Snapshot push cadence for connected clients")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	mpdHost := flag.String("mpd-host", "", "MPD host for motor noise playback (empty disables)")
	mpdPort := flag.Int("mpd-port", 6600, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	motorURI := flag.String("motor-uri", "sounds/mechanism.flac", "URI of the mechanism noise loop in the MPD database")
	motorVolume := flag.Int("motor-volume", 40, "Motor noise volume (0-100)")
	qobuzAppID := flag.String("qobuz-app-id", os.Getenv("QOBUZ_APP_ID"), "Qobuz application ID for stream resolution")
	qobuzAppSecret := flag.String("qobuz-app-secret", os.Getenv("QOBUZ_APP_SECRET"), "Qobuz application secret")
	qobuzEmail := flag.String("qobuz-email", os.Getenv("QOBUZ_EMAIL"), "Qobuz account email")
	qobuzPassword := flag.String("qobuz-password", os.Getenv("QOBUZ_PASSWORD"), "Qobuz account password")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Cassette Deck Transport Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("db", *dbPath).
		Dur("tick", *tick).
		Str("mpd_host", *mpdHost).
		Bool("qobuz_configured", *qobuzAppID != "").
		Msg("Configuration")

	// Open the tape library
	db := store.NewDB(*dbPath)
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("Failed to open tape library")
	}
	defer db.Close()

	dao := store.NewDAO(db)
	library := store.NewLibrary(dao)
	if err := library.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load tape library")
	}

	// Optional MPD-backed motor noise
	var motorPlayer audio.MotorPlayer
	if *mpdHost != "" {
		mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
		if err := mpdClient.Connect(); err != nil {
			log.Warn().Err(err).Msg("MPD unreachable, motor noise disabled")
		} else {
			defer mpdClient.Close()
			motorPlayer = mpd.NewMotorLoop(mpdClient, *motorURI, *motorVolume)
			log.Info().Str("uri", *motorURI).Msg("Motor noise loop enabled")
		}
	}
	motor := audio.NewController(motorPlayer)

	// Optional Qobuz stream resolver
	var resolver *streaming.Resolver
	if *qobuzAppID != "" {
		resolver = streaming.NewResolver(streaming.Credentials{
			AppID:     *qobuzAppID,
			AppSecret: *qobuzAppSecret,
			Email:     *qobuzEmail,
			Password:  *qobuzPassword,
		})
	}

	// Transport state and engine
	state := deck.NewState()
	state.OnModeChange(motor.OnModeChange)
	engine := deck.NewEngine(state, library, *tick)

	// Restore the last session so the tape picks up where it left off
	if snap, err := dao.LoadSnapshot("default"); err != nil {
		log.Warn().Err(err).Msg("Failed to load saved session")
	} else if snap != nil {
		state.Restore(*snap)
		log.Info().
			Str("side", snap.Side.String()).
			Float64("progress", snap.ActiveProgress()).
			Msg("Restored saved session")
	}

	// Create Socket.io server
	socketServer, err := socketio.NewServer(engine, library, dao, motor, resolver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Run(ctx)
	socketServer.StartStateWatcher(ctx, *pushInterval)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","store":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","store":"connected"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// Basic state endpoint (REST fallback)
	mux.HandleFunc("/api/v1/getState", func(w http.ResponseWriter, r *http.Request) {
		snap := state.Snapshot()
		tl := library.Tracklist()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"mode":           snap.Mode.String(),
			"side":           snap.Side.String(),
			"sideAProgress":  snap.SideAProgress,
			"sideBProgress":  snap.SideBProgress,
			"activeProgress": snap.ActiveProgress(),
			"canFlip":        snap.CanFlip(),
			"label":          tl.Label(),
		})
	})

	// Tracklist endpoint (REST fallback)
	mux.HandleFunc("/api/v1/getTracklist", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(library.Tracklist())
	})

	// Serve static files if directory specified (SPA mode)
	if *staticDir != "" {
		log.Info().Str("dir", *staticDir).Msg("Serving static files")
		fs := http.FileServer(http.Dir(*staticDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *staticDir + r.URL.Path
			if r.URL.Path == "/" {
				path = *staticDir + "/index.html"
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// For SPA routing, serve index.html for non-existing paths
				http.ServeFile(w, r, *staticDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")

		// Park the tape before the process goes away
		if err := dao.SaveSnapshot("default", state.Snapshot()); err != nil {
			log.Error().Err(err).Msg("Failed to save session")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
