// Package obstest provides an in-process obs-websocket server for tests.
package obstest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/oshokin/motion-stream/internal/obs"
)

// Salt and Challenge are sent in Hello when the server has a password.
const (
	Salt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	Challenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

// errNoScreenshot is returned by the default screenshot handler.
var errNoScreenshot = errors.New("no screenshot configured")

// ScreenshotFunc produces the data URL answered to GetSourceScreenshot.
type ScreenshotFunc func(req obs.ScreenshotRequest) (string, error)

// Server is a fake obs-websocket server backed by httptest.
type Server struct {
	// server is the underlying HTTP test server.
	server *httptest.Server
	// password enables authentication when not empty.
	password string
	// upgrader upgrades incoming HTTP requests.
	upgrader websocket.Upgrader

	// mu protects the fields below.
	mu sync.Mutex
	// screenshot answers GetSourceScreenshot.
	screenshot ScreenshotFunc
	// streaming is the simulated stream output state.
	streaming bool
	// requests counts handled requests per type.
	requests map[string]int
	// sessions counts successfully identified sessions.
	sessions int
	// conns holds the live connections.
	conns map[*websocket.Conn]struct{}
}

// Option configures the fake server.
type Option func(*Server)

// WithPassword requires clients to authenticate with password.
func WithPassword(password string) Option {
	return func(s *Server) {
		s.password = password
	}
}

// WithScreenshot sets the GetSourceScreenshot handler.
func WithScreenshot(fn ScreenshotFunc) Option {
	return func(s *Server) {
		s.screenshot = fn
	}
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		upgrader: websocket.Upgrader{
			Subprotocols: []string{obs.Subprotocol},
		},
		screenshot: func(obs.ScreenshotRequest) (string, error) {
			return "", errNoScreenshot
		},
		requests: make(map[string]int),
		conns:    make(map[*websocket.Conn]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// Address returns the host:port the server listens on.
func (s *Server) Address() string {
	return strings.TrimPrefix(s.server.URL, "http://")
}

// Close drops every connection and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.server.Close()
}

// DropConnections closes every live connection without a close frame.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}

// SetScreenshot replaces the GetSourceScreenshot handler.
func (s *Server) SetScreenshot(fn ScreenshotFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screenshot = fn
}

// Requests returns how many requests of the given type were handled.
func (s *Server) Requests(requestType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[requestType]
}

// Sessions returns how many sessions completed the handshake.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions
}

// Streaming reports the simulated stream output state.
func (s *Server) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.streaming
}

// serve handles one websocket session.
func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		_ = conn.Close()
	}()

	if !s.handshake(conn) {
		return
	}

	for {
		var msg obs.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Op != obs.OpRequest {
			continue
		}

		var req obs.Request
		if err := json.Unmarshal(msg.D, &req); err != nil {
			return
		}

		reply, err := obs.NewMessage(obs.OpRequestResponse, s.handle(&req, msg.D))
		if err != nil {
			return
		}

		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// handshake sends Hello, checks Identify and answers Identified.
func (s *Server) handshake(conn *websocket.Conn) bool {
	hello := obs.Hello{
		OBSWebSocketVersion: "5.5.0",
		RPCVersion:          obs.RPCVersion,
	}

	if s.password != "" {
		hello.Authentication = &obs.AuthChallenge{
			Challenge: Challenge,
			Salt:      Salt,
		}
	}

	msg, err := obs.NewMessage(obs.OpHello, &hello)
	if err != nil || conn.WriteJSON(msg) != nil {
		return false
	}

	var reply obs.Message
	if err = conn.ReadJSON(&reply); err != nil || reply.Op != obs.OpIdentify {
		return false
	}

	var identify obs.Identify
	if err = json.Unmarshal(reply.D, &identify); err != nil {
		return false
	}

	if s.password != "" && identify.Authentication != obs.AuthString(s.password, Salt, Challenge) {
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(obs.CloseAuthenticationFailed, "Authentication failed."),
		)

		return false
	}

	msg, err = obs.NewMessage(obs.OpIdentified, &obs.Identified{NegotiatedRPCVersion: obs.RPCVersion})
	if err != nil || conn.WriteJSON(msg) != nil {
		return false
	}

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	return true
}

// handle executes a request against the simulated state.
func (s *Server) handle(req *obs.Request, raw json.RawMessage) *obs.RequestResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.RequestType]++

	resp := &obs.RequestResponse{
		RequestType:   req.RequestType,
		RequestID:     req.RequestID,
		RequestStatus: obs.RequestStatus{Result: true, Code: obs.StatusSuccess},
	}

	fail := func(code int, comment string) *obs.RequestResponse {
		resp.RequestStatus = obs.RequestStatus{Result: false, Code: code, Comment: comment}
		return resp
	}

	switch req.RequestType {
	case obs.RequestGetSourceScreenshot:
		var envelope struct {
			RequestData obs.ScreenshotRequest `json:"requestData"`
		}

		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fail(400, err.Error())
		}

		imageData, err := s.screenshot(envelope.RequestData)
		if err != nil {
			return fail(obs.StatusResourceNotFound, err.Error())
		}

		resp.ResponseData, _ = json.Marshal(&obs.ScreenshotResponse{ImageData: imageData})
	case obs.RequestStartStream:
		if s.streaming {
			return fail(obs.StatusOutputRunning, "The stream output is already running.")
		}

		s.streaming = true
	case obs.RequestStopStream:
		if !s.streaming {
			return fail(obs.StatusOutputNotRunning, "The stream output is not running.")
		}

		s.streaming = false
	case obs.RequestGetStreamStatus:
		resp.ResponseData, _ = json.Marshal(&obs.StreamStatus{OutputActive: s.streaming})
	default:
		return fail(204, "Your request type is not valid.")
	}

	return resp
}

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}

	return img
}

// PNGDataURL encodes img the way OBS returns screenshots.
func PNGDataURL(img image.Image) string {
	var buf bytes.Buffer

	// Encoding an in-memory RGBA image cannot fail.
	_ = png.Encode(&buf, img)

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
