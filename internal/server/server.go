// Package server provides the HTTP and WebSocket status surface: connected
// clients receive a message per emitted capture, and a REST endpoint serves
// the most recent frame.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/nfnt/resize"

	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/syncx"
	"github.com/screenwatch/screenwatch/internal/trace"
)

const (
	// ThumbnailWidth bounds the preview image pushed over the socket.
	ThumbnailWidth = 320
	// ThumbnailQuality is the JPEG quality for previews and /api/latest.
	ThumbnailQuality = 70
)

// CaptureMessage is pushed to every connected client when a frame is emitted.
type CaptureMessage struct {
	Type      string    `json:"type"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	AppName   string    `json:"app_name,omitempty"`
	Title     string    `json:"title,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Status summarizes what the agent has done since startup.
type Status struct {
	Emitted   int       `json:"emitted"`
	LastEmit  time.Time `json:"last_emit,omitzero"`
	StartedAt time.Time `json:"started_at"`
}

// latestFrame holds the most recent emission as encoded JPEG.
type latestFrame struct {
	data      []byte
	sourceID  string
	timestamp time.Time
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]struct{}
	latest *syncx.RWGuard[latestFrame]
	status *syncx.RWGuard[Status]
}

// New creates a new status server.
func New() *Server {
	return &Server{
		conns:  make(map[*websocket.Conn]struct{}),
		latest: syncx.NewGuard(latestFrame{}),
		status: syncx.NewGuard(Status{StartedAt: time.Now()}),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/latest", s.handleLatest)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Publish records an emitted capture and broadcasts it to connected clients.
// Encoding failures are logged and dropped; status publishing never fails
// the capture path.
func (s *Server) Publish(ctx context.Context, res *event.CaptureResult) {
	log := trace.Logger(ctx)

	preview := resize.Resize(ThumbnailWidth, 0, res.Image, resize.Bilinear)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, preview, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		log.Warn("thumbnail encode failed", "source", res.SourceID, "error", err)
		return
	}

	s.latest.Set(latestFrame{
		data:      buf.Bytes(),
		sourceID:  res.SourceID,
		timestamp: res.Timestamp,
	})
	s.status.Update(func(st *Status) {
		st.Emitted++
		st.LastEmit = res.Timestamp
	})

	msg := CaptureMessage{
		Type:      "capture",
		SourceID:  res.SourceID,
		Timestamp: res.Timestamp,
		Width:     res.Image.Bounds().Dx(),
		Height:    res.Image.Bounds().Dy(),
		Thumbnail: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	if res.Window != nil {
		msg.AppName = res.Window.AppName
		msg.Title = res.Window.Title
	}

	s.mu.RLock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
	s.mu.RUnlock()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Clients only receive; drain incoming messages to notice the close.
	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	frame := s.latest.Get()
	if len(frame.data) == 0 {
		http.Error(w, "no captures yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Source-Id", frame.sourceID)
	w.Header().Set("X-Captured-At", frame.timestamp.UTC().Format(time.RFC3339Nano))
	w.Write(frame.data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status.Get())
}
