// Package streaming resolves J-card tracks to real playable streams.
// It is a best-effort side system: the transport simulates the tape
// whether or not a resolved stream exists, and nothing here writes back
// into the transport.
package streaming

import (
	"fmt"
	"strings"
	"sync"

	"github.com/markhc/gobuz"
	"github.com/rs/zerolog/log"
)

// StreamInfo carries what the frontend needs to play a resolved track.
type StreamInfo struct {
	URL        string `json:"url"`
	Format     string `json:"format,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
}

// Credentials configures the Qobuz backend. Zero value disables the
// resolver.
type Credentials struct {
	AppID     string
	AppSecret string
	Email     string
	Password  string
}

// Resolver looks up tracks on Qobuz by title and hands back a stream URL
// at the best available quality.
type Resolver struct {
	mu       sync.RWMutex
	api      *gobuz.QobuzAPI
	loggedIn bool
}

// NewResolver creates a resolver and attempts login when credentials are
// supplied. Login failure disables the resolver rather than failing
// startup; real playback is optional everywhere.
func NewResolver(creds Credentials) *Resolver {
	r := &Resolver{}

	if creds.AppID == "" || creds.Email == "" {
		return r
	}

	r.api = gobuz.NewQobuzAPI(
		gobuz.WithApplicationCredentials(creds.AppID, creds.AppSecret),
	)
	if err := r.api.Login(creds.Email, creds.Password); err != nil {
		log.Warn().Err(err).Msg("Streaming login failed, resolver disabled")
		r.api = nil
		return r
	}

	r.loggedIn = true
	log.Info().Str("email", creds.Email).Msg("Streaming resolver enabled")
	return r
}

// Enabled reports whether stream resolution is available.
func (r *Resolver) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loggedIn
}

// Resolve finds the closest match for a track title and returns its
// stream, trying hi-res formats first and falling back to CD quality.
func (r *Resolver) Resolve(title string) (*StreamInfo, error) {
	if !r.Enabled() {
		return nil, fmt.Errorf("streaming resolver not configured")
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("empty track title")
	}

	results, err := r.api.SearchTracks(title).WithLimit(1).Run()
	if err != nil {
		return nil, fmt.Errorf("track search failed: %w", err)
	}
	if results == nil || len(results.Tracks.Items) == 0 {
		return nil, fmt.Errorf("no match for %q", title)
	}
	track := results.Tracks.Items[0]

	fileURL, err := r.api.GetTrackFileUrl(track.ID, gobuz.TrackFormatHiRes24Bit192Khz)
	if err != nil {
		fileURL, err = r.api.GetTrackFileUrl(track.ID, gobuz.TrackFormatHiRes24Bit96Khz)
		if err != nil {
			fileURL, err = r.api.GetTrackFileUrl(track.ID, gobuz.TrackFormatFLAC)
			if err != nil {
				return nil, fmt.Errorf("failed to get stream URL: %w", err)
			}
		}
	}

	return &StreamInfo{
		URL:        fileURL.URL,
		Format:     "flac",
		BitDepth:   fileURL.BitDepth,
		SampleRate: int(fileURL.SamplingRate),
		Duration:   fileURL.Duration,
		MimeType:   fileURL.MimeType,
		Title:      track.Title,
		Artist:     track.Performer.Name,
	}, nil
}
