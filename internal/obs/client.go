package obs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultCallTimeout bounds the handshake and each request when no timeout is configured.
const DefaultCallTimeout = 5 * time.Second

// Client is an obs-websocket v5 client. Requests may be issued concurrently.
type Client struct {
	// address is the host:port of the obs-websocket server.
	address string
	// password authenticates the session; empty when auth is disabled.
	password string
	// callTimeout bounds the handshake and every request.
	callTimeout time.Duration

	// writeMu serializes writes on the websocket connection.
	writeMu sync.Mutex
	// mu protects the connection state below.
	mu sync.Mutex
	// conn is the live connection, nil while disconnected.
	conn *websocket.Conn
	// pending maps request ids to the channels waiting for their response.
	pending map[string]chan *RequestResponse
	// done is closed when the current connection goes away.
	done chan struct{}
	// closeErr explains why the last connection went away.
	closeErr error
	// hello is the greeting of the current session.
	hello Hello
	// negotiatedRPCVersion is the RPC version of the current session.
	negotiatedRPCVersion int
}

// Option configures client behaviour.
type Option func(*Client)

// WithPassword sets the password used when the server requires authentication.
func WithPassword(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

// WithCallTimeout sets the timeout for the handshake and for each request.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errEmptyImageData is returned when a screenshot carries no payload.
	errEmptyImageData = errors.New("empty image data")
)

// NewClient creates a disconnected client for the server at address (host:port).
func NewClient(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		address:     address,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Address returns the server address.
func (c *Client) Address() string {
	return c.address
}

// Connect dials the server and performs the Hello/Identify handshake.
// It is a no-op while a session is alive.
func (c *Client) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.callTimeout,
		Subprotocols:     []string{Subprotocol},
	}

	//nolint:bodyclose // The response body is handled by the websocket library.
	conn, _, err := dialer.DialContext(callCtx, c.url(), nil)
	if err != nil {
		return fmt.Errorf("dial obs-websocket: %w", err)
	}

	hello, identified, err := c.identify(callCtx, conn)
	if err != nil {
		_ = conn.Close()

		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan *RequestResponse)
	c.done = make(chan struct{})
	c.closeErr = nil
	c.hello = *hello
	c.negotiatedRPCVersion = identified.NegotiatedRPCVersion
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn, done)

	return nil
}

// Connected reports whether a session is alive.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// ServerVersion returns the obs-websocket version reported in the last Hello.
func (c *Client) ServerVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hello.OBSWebSocketVersion
}

// NegotiatedRPCVersion returns the RPC version of the last session.
func (c *Client) NegotiatedRPCVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.negotiatedRPCVersion
}

// Close ends the session. It is safe to call on a disconnected client.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	c.shutdown(conn, ErrClosed)

	return nil
}

// Call sends a request and waits for its response.
// When out is not nil the response data is decoded into it.
func (c *Client) Call(ctx context.Context, requestType string, data, out any) error {
	c.mu.Lock()

	conn, done := c.conn, c.done
	if conn == nil {
		c.mu.Unlock()

		return ErrNotConnected
	}

	requestID := uuid.NewString()
	responses := make(chan *RequestResponse, 1)
	c.pending[requestID] = responses

	c.mu.Unlock()

	defer c.forget(requestID)

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	msg, err := NewMessage(OpRequest, &Request{
		RequestType: requestType,
		RequestID:   requestID,
		RequestData: data,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", requestType, err)
	}

	if err = c.write(callCtx, conn, msg); err != nil {
		return fmt.Errorf("send %s: %w", requestType, err)
	}

	select {
	case resp := <-responses:
		return decodeResponse(resp, out)
	case <-done:
		return fmt.Errorf("%s: %w", requestType, c.lastError())
	case <-callCtx.Done():
		return fmt.Errorf("%s: %w", requestType, callCtx.Err())
	}
}

// GetSourceScreenshot captures the given source and returns the encoded image bytes.
func (c *Client) GetSourceScreenshot(ctx context.Context, req *ScreenshotRequest) ([]byte, error) {
	var resp ScreenshotResponse
	if err := c.Call(ctx, RequestGetSourceScreenshot, req, &resp); err != nil {
		return nil, err
	}

	return DecodeImageData(resp.ImageData)
}

// StartStream starts the OBS stream output.
func (c *Client) StartStream(ctx context.Context) error {
	return c.Call(ctx, RequestStartStream, nil, nil)
}

// StopStream stops the OBS stream output.
func (c *Client) StopStream(ctx context.Context) error {
	return c.Call(ctx, RequestStopStream, nil, nil)
}

// GetStreamStatus reports whether the OBS stream output is active.
func (c *Client) GetStreamStatus(ctx context.Context) (*StreamStatus, error) {
	var status StreamStatus
	if err := c.Call(ctx, RequestGetStreamStatus, nil, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// DecodeImageData extracts the bytes of a "data:image/...;base64," URL.
// A bare base64 string is accepted as well.
func DecodeImageData(imageData string) ([]byte, error) {
	payload := imageData
	if _, after, found := strings.Cut(imageData, ","); found {
		payload = after
	}

	if payload == "" {
		return nil, errEmptyImageData
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}

	return data, nil
}

// identify runs the Hello/Identify/Identified exchange on a fresh connection.
func (c *Client) identify(ctx context.Context, conn *websocket.Conn) (*Hello, *Identified, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)

		defer func() {
			_ = conn.SetReadDeadline(time.Time{})
			_ = conn.SetWriteDeadline(time.Time{})
		}()
	}

	var hello Hello
	if err := readPayload(conn, OpHello, &hello); err != nil {
		return nil, nil, fmt.Errorf("read hello: %w", err)
	}

	identify := Identify{
		RPCVersion:         RPCVersion,
		EventSubscriptions: 0,
	}

	if hello.Authentication != nil {
		if c.password == "" {
			return nil, nil, ErrAuthRequired
		}

		identify.Authentication = AuthString(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	msg, err := NewMessage(OpIdentify, &identify)
	if err != nil {
		return nil, nil, fmt.Errorf("encode identify: %w", err)
	}

	if err = conn.WriteJSON(msg); err != nil {
		return nil, nil, fmt.Errorf("send identify: %w", err)
	}

	var identified Identified
	if err = readPayload(conn, OpIdentified, &identified); err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == CloseAuthenticationFailed {
			return nil, nil, ErrAuthFailed
		}

		return nil, nil, fmt.Errorf("read identified: %w", err)
	}

	return &hello, &identified, nil
}

// readLoop dispatches request responses until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn, done <-chan struct{}) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
			default:
				c.shutdown(conn, fmt.Errorf("%w: %w", ErrClosed, err))
			}

			return
		}

		if msg.Op != OpRequestResponse {
			// Events and other notifications are not subscribed to.
			continue
		}

		var resp RequestResponse
		if err := json.Unmarshal(msg.D, &resp); err != nil {
			continue
		}

		c.mu.Lock()
		responses, ok := c.pending[resp.RequestID]
		delete(c.pending, resp.RequestID)
		c.mu.Unlock()

		if ok {
			responses <- &resp
		}
	}
}

// shutdown tears down conn if it is still the current connection.
func (c *Client) shutdown(conn *websocket.Conn, reason error) {
	c.mu.Lock()

	if c.conn != conn {
		c.mu.Unlock()

		return
	}

	c.conn = nil
	c.pending = nil
	c.closeErr = reason
	close(c.done)

	c.mu.Unlock()

	_ = conn.Close()
}

// forget drops a pending request.
func (c *Client) forget(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, requestID)
}

// lastError returns why the last connection went away.
func (c *Client) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closeErr == nil {
		return ErrClosed
	}

	return c.closeErr
}

// write sends one message, bounded by the context deadline.
func (c *Client) write(ctx context.Context, conn *websocket.Conn, msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)

	return conn.WriteJSON(msg)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// url returns the websocket URL of the server.
func (c *Client) url() string {
	u := url.URL{
		Scheme: "ws",
		Host:   c.address,
	}

	return u.String()
}

// readPayload reads one message, checks its op code and decodes its payload.
func readPayload(conn *websocket.Conn, want OpCode, out any) error {
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return err
	}

	if msg.Op != want {
		return fmt.Errorf("%w: op %d, want %d", ErrUnexpectedMessage, msg.Op, want)
	}

	if err := json.Unmarshal(msg.D, out); err != nil {
		return fmt.Errorf("decode op %d: %w", msg.Op, err)
	}

	return nil
}

// decodeResponse converts a failed status into a RequestError and decodes the data.
func decodeResponse(resp *RequestResponse, out any) error {
	if !resp.RequestStatus.Result {
		return &RequestError{
			RequestType: resp.RequestType,
			Code:        resp.RequestStatus.Code,
			Comment:     resp.RequestStatus.Comment,
		}
	}

	if out == nil || len(resp.ResponseData) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.ResponseData, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.RequestType, err)
	}

	return nil
}
