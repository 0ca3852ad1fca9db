// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/audio"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/infra/store"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/streaming"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

// maxExternalClients caps concurrent non-localhost viewers of one deck.
const maxExternalClients = 8

// Server handles Socket.io connections and events. Transport commands
// arrive as events and are applied synchronously on the deck state;
// state snapshots are pushed back as "pushState".
type Server struct {
	io       *socket.Server
	engine   *deck.Engine
	library  *store.Library
	sessions *store.DAO
	motor    *audio.Controller
	resolver *streaming.Resolver

	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer

	mu       sync.RWMutex
	clients  map[string]*socket.Socket
	lastPush deck.Snapshot
	pushed   bool
}

// NewServer creates a new Socket.io server. motor and resolver may be
// nil; the corresponding payload fields and events degrade gracefully.
func NewServer(engine *deck.Engine, library *store.Library, sessions *store.DAO, motor *audio.Controller, resolver *streaming.Resolver) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:       server,
		engine:   engine,
		library:  library,
		sessions: sessions,
		motor:    motor,
		resolver: resolver,
		limiter:  NewConnectionLimiter(maxExternalClients),
		clients:  make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(100*time.Millisecond, s.BroadcastState, s.BroadcastTracklist)

	// Mode transitions (including end-of-side auto-stop from inside the
	// engine) push immediately rather than waiting for the watcher.
	engine.State().OnModeChange(func(old, next deck.Mode) {
		log.Debug().Str("from", old.String()).Str("to", next.String()).Msg("Transport mode changed")
		s.BroadcastState()
	})

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := client.Handshake().Address

		_, evictedID := s.limiter.TryAdd(clientID, remoteIP)
		if evictedID != "" {
			s.mu.RLock()
			evicted := s.clients[evictedID]
			s.mu.RUnlock()
			if evicted != nil {
				log.Info().Str("id", evictedID).Msg("Evicting oldest external client")
				evicted.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushTracklist(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Transport commands
		state := s.engine.State()

		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("play", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("play")
			state.Play()
		})

		client.On("pause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("pause")
			state.Pause()
		})

		client.On("stop", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("stop")
			state.Stop()
			s.BroadcastState()
		})

		client.On("rewindStart", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("rewindStart")
			state.StartRewind()
		})

		client.On("rewindEnd", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("rewindEnd")
			state.EndRewind()
		})

		client.On("ffwdStart", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("ffwdStart")
			state.StartFastForward()
		})

		client.On("ffwdEnd", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("ffwdEnd")
			state.EndFastForward()
		})

		client.On("flip", func(args ...any) {
			flipped := state.Flip()
			log.Debug().Str("id", clientID).Bool("flipped", flipped).Msg("flip")
			// A rejected flip changes nothing, but the client that asked
			// still gets a fresh snapshot to settle its animation.
			s.pushState(client)
		})

		client.On("seek", func(args ...any) {
			if len(args) == 0 {
				return
			}
			m, ok := args[0].(map[string]interface{})
			if !ok {
				return
			}

			sideStr, _ := m["side"].(string)
			side, ok := tape.ParseSide(sideStr)
			if !ok {
				side = s.engine.State().Snapshot().Side
			}

			if track, ok := m["track"].(float64); ok {
				log.Debug().Str("id", clientID).Str("side", side.String()).Int("track", int(track)).Msg("seek to track")
				s.engine.SeekTrack(side, int(track))
			} else if fraction, ok := m["fraction"].(float64); ok {
				log.Debug().Str("id", clientID).Str("side", side.String()).Float64("fraction", fraction).Msg("seek to fraction")
				state.Seek(side, fraction)
			}
			s.BroadcastState()
		})

		// Program events
		client.On("getTracklist", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getTracklist")
			s.pushTracklist(client)
		})

		client.On("setTracklist", func(args ...any) {
			if len(args) == 0 {
				return
			}
			tl, err := decodeTracklist(args[0])
			if err != nil {
				log.Error().Err(err).Str("id", clientID).Msg("setTracklist: bad payload")
				return
			}
			if _, err := s.library.Replace(tl); err != nil {
				log.Error().Err(err).Msg("setTracklist: persist failed")
				return
			}
			s.debouncer.Trigger(EventProgram)
		})

		// Session snapshots
		client.On("saveSession", func(args ...any) {
			name := sessionName(args)
			log.Debug().Str("id", clientID).Str("name", name).Msg("saveSession")
			if err := s.sessions.SaveSnapshot(name, state.Snapshot()); err != nil {
				log.Error().Err(err).Msg("saveSession failed")
			}
		})

		client.On("restoreSession", func(args ...any) {
			name := sessionName(args)
			log.Debug().Str("id", clientID).Str("name", name).Msg("restoreSession")
			snap, err := s.sessions.LoadSnapshot(name)
			if err != nil {
				log.Error().Err(err).Msg("restoreSession failed")
				return
			}
			if snap == nil {
				log.Warn().Str("name", name).Msg("restoreSession: unknown session")
				return
			}
			state.Restore(*snap)
			s.BroadcastState()
		})

		// Best-effort real playback
		client.On("resolveStream", func(args ...any) {
			if s.resolver == nil || !s.resolver.Enabled() {
				client.Emit("pushStream", map[string]interface{}{"error": "streaming not configured"})
				return
			}
			title := ""
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					title, _ = m["title"].(string)
				}
			}
			log.Debug().Str("id", clientID).Str("title", title).Msg("resolveStream")

			info, err := s.resolver.Resolve(title)
			if err != nil {
				client.Emit("pushStream", map[string]interface{}{"error": err.Error()})
				return
			}
			client.Emit("pushStream", info)
		})
	})
}

// statePayload builds the snapshot pushed to clients: the raw transport
// record plus everything the renderer derives from it each frame.
func (s *Server) statePayload() map[string]interface{} {
	snap := s.engine.State().Snapshot()
	tl := s.library.Tracklist()

	payload := map[string]interface{}{
		"mode":           snap.Mode.String(),
		"side":           snap.Side.String(),
		"sideAProgress":  snap.SideAProgress,
		"sideBProgress":  snap.SideBProgress,
		"activeProgress": snap.ActiveProgress(),
		"canFlip":        snap.CanFlip(),
		"label":          tl.Label(),
		"sideADuration":  tl.SideDuration(tape.SideA),
		"sideBDuration":  tl.SideDuration(tape.SideB),
	}
	if s.motor != nil {
		payload["motor"] = s.motor.State()
	}
	return payload
}

// pushState sends the current state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.statePayload())
}

// pushTracklist sends the current program to a client.
func (s *Server) pushTracklist(client *socket.Socket) {
	client.Emit("pushTracklist", s.library.Tracklist())
}

// BroadcastState sends state to all connected clients.
func (s *Server) BroadcastState() {
	payload := s.statePayload()
	s.io.Emit("pushState", payload)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(payload)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastTracklist sends the program to all connected clients.
func (s *Server) BroadcastTracklist() {
	s.io.Emit("pushTracklist", s.library.Tracklist())
}

// StartStateWatcher pushes snapshots at the given cadence while the
// transport is actually moving, so clients see the tape wind without
// polling. Identical consecutive snapshots are not rebroadcast.
func (s *Server) StartStateWatcher(ctx context.Context, interval time.Duration) {
	go func() {
		log.Info().Dur("interval", interval).Msg("State watcher started")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("State watcher stopped")
				return
			case <-ticker.C:
				snap := s.engine.State().Snapshot()

				s.mu.Lock()
				same := s.pushed && snap == s.lastPush
				s.lastPush = snap
				s.pushed = true
				s.mu.Unlock()

				if !same {
					s.BroadcastState()
				}
			}
		}
	}()
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}

// decodeTracklist converts a raw socket payload into a Tracklist.
func decodeTracklist(raw any) (tape.Tracklist, error) {
	var tl tape.Tracklist
	data, err := json.Marshal(raw)
	if err != nil {
		return tl, err
	}
	if err := json.Unmarshal(data, &tl); err != nil {
		return tl, err
	}
	return tl, nil
}

// sessionName pulls the snapshot name out of a payload, defaulting to
// the implicit single-session slot.
func sessionName(args []any) string {
	if len(args) > 0 {
		if m, ok := args[0].(map[string]interface{}); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				return name
			}
		}
	}
	return "default"
}
