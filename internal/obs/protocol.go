package obs

import "encoding/json"

// OpCode identifies the kind of an obs-websocket message.
type OpCode int

// Message op codes of the obs-websocket v5 protocol.
const (
	OpHello           OpCode = 0
	OpIdentify        OpCode = 1
	OpIdentified      OpCode = 2
	OpRequest         OpCode = 6
	OpRequestResponse OpCode = 7
)

// RPCVersion is the obs-websocket RPC version this client speaks.
const RPCVersion = 1

// Subprotocol is the websocket subprotocol for JSON encoded messages.
const Subprotocol = "obswebsocket.json"

// CloseAuthenticationFailed is the close code the server sends when the
// Identify message carries a wrong or missing authentication string.
const CloseAuthenticationFailed = 4009

// Request status codes.
const (
	StatusSuccess          = 100
	StatusResourceNotFound = 600
	StatusOutputRunning    = 500
	StatusOutputNotRunning = 501
)

// Request types used by the detector.
const (
	RequestGetSourceScreenshot = "GetSourceScreenshot"
	RequestStartStream         = "StartStream"
	RequestStopStream          = "StopStream"
	RequestGetStreamStatus     = "GetStreamStatus"
)

// Message is the envelope of every obs-websocket frame.
type Message struct {
	// Op is the message type.
	Op OpCode `json:"op"`
	// D is the op specific payload.
	D json.RawMessage `json:"d"`
}

// Hello is sent by the server right after the websocket upgrade.
type Hello struct {
	// OBSWebSocketVersion is the plugin version, e.g. "5.1.0".
	OBSWebSocketVersion string `json:"obsWebSocketVersion"`
	// RPCVersion is the latest RPC version the server supports.
	RPCVersion int `json:"rpcVersion"`
	// Authentication is present when the server requires a password.
	Authentication *AuthChallenge `json:"authentication,omitempty"`
}

// AuthChallenge carries the values needed to build the authentication string.
type AuthChallenge struct {
	// Challenge is a per-session random string.
	Challenge string `json:"challenge"`
	// Salt is the password salt.
	Salt string `json:"salt"`
}

// Identify is the client's answer to Hello.
type Identify struct {
	// RPCVersion is the RPC version the client wants to use.
	RPCVersion int `json:"rpcVersion"`
	// Authentication is the computed auth string, empty when not required.
	Authentication string `json:"authentication,omitempty"`
	// EventSubscriptions is a bitmask of event categories; 0 subscribes to none.
	EventSubscriptions int `json:"eventSubscriptions"`
}

// Identified confirms the session.
type Identified struct {
	// NegotiatedRPCVersion is the RPC version both sides agreed on.
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

// Request is a single client request.
type Request struct {
	// RequestType names the request, e.g. "StartStream".
	RequestType string `json:"requestType"`
	// RequestID correlates the response with the request.
	RequestID string `json:"requestId"`
	// RequestData holds the request parameters.
	RequestData any `json:"requestData,omitempty"`
}

// RequestStatus reports whether a request succeeded.
type RequestStatus struct {
	// Result is true on success.
	Result bool `json:"result"`
	// Code is the obs-websocket status code.
	Code int `json:"code"`
	// Comment optionally explains a failure.
	Comment string `json:"comment,omitempty"`
}

// RequestResponse is the server's answer to a Request.
type RequestResponse struct {
	// RequestType echoes the request type.
	RequestType string `json:"requestType"`
	// RequestID echoes the request id.
	RequestID string `json:"requestId"`
	// RequestStatus is the outcome.
	RequestStatus RequestStatus `json:"requestStatus"`
	// ResponseData holds the request specific result.
	ResponseData json.RawMessage `json:"responseData,omitempty"`
}

// ScreenshotRequest is the payload of GetSourceScreenshot.
type ScreenshotRequest struct {
	// SourceName is the OBS source to capture.
	SourceName string `json:"sourceName"`
	// ImageFormat is the encoding, e.g. "jpeg" or "png".
	ImageFormat string `json:"imageFormat"`
	// ImageWidth scales the screenshot to this width.
	ImageWidth int `json:"imageWidth,omitempty"`
	// ImageHeight scales the screenshot to this height.
	ImageHeight int `json:"imageHeight,omitempty"`
}

// ScreenshotResponse is the result of GetSourceScreenshot.
type ScreenshotResponse struct {
	// ImageData is a data URL, e.g. "data:image/jpeg;base64,...".
	ImageData string `json:"imageData"`
}

// StreamStatus is the result of GetStreamStatus.
type StreamStatus struct {
	// OutputActive is true while OBS is streaming.
	OutputActive bool `json:"outputActive"`
}

// NewMessage wraps a payload into an envelope.
func NewMessage(op OpCode, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Op: op,
		D:  data,
	}, nil
}
