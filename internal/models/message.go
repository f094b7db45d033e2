package models

// Event names used on the signaling socket, in both directions.
const (
	EventConnected      = "connected"
	EventRegister       = "register"
	EventRegistered     = "registered"
	EventSecurityUpdate = "security-update"
	EventSignal         = "signal"
	EventPTTAudio       = "ptt-audio"
	EventPTTStatus      = "ptt-status"
	EventMessage        = "message"
	EventError          = "error"
)

// SignalType represents the type of WebRTC signaling message
type SignalType string

const (
	SignalTypeOffer     SignalType = "offer"
	SignalTypeAnswer    SignalType = "answer"
	SignalTypeCandidate SignalType = "ice-candidate"
)

// Valid reports whether the relay forwards signals of this type.
func (t SignalType) Valid() bool {
	switch t {
	case SignalTypeOffer, SignalTypeAnswer, SignalTypeCandidate:
		return true
	}
	return false
}

// Security update kinds
const (
	UpdateUserJoined = "user_joined"
	UpdateUserLeft   = "user_left"
)

// ConnectedEvent is sent to every socket right after the upgrade.
type ConnectedEvent struct {
	ID string `json:"id" msgpack:"id"`
}

// RegisterRequest is the payload of a register event. Fields other than
// role and name are kept as opaque extras on the User.
type RegisterRequest struct {
	Role Role   `json:"role" msgpack:"role"`
	Name string `json:"name" msgpack:"name"`
}

type RegisteredEvent struct {
	Success  bool     `json:"success" msgpack:"success"`
	Role     Role     `json:"role" msgpack:"role"`
	Channels []string `json:"channels" msgpack:"channels"`
}

type SecurityUpdate struct {
	Type  string `json:"type" msgpack:"type"`
	User  string `json:"user" msgpack:"user"`
	Count int    `json:"count" msgpack:"count"`
}

// SignalRequest carries an offer, answer or ICE candidate addressed to one
// connection id. Signal is relayed untouched.
type SignalRequest struct {
	To     string     `json:"to" msgpack:"to"`
	Type   SignalType `json:"type" msgpack:"type"`
	Signal any        `json:"signal" msgpack:"signal"`
}

type SignalEvent struct {
	From   string     `json:"from" msgpack:"from"`
	Signal any        `json:"signal" msgpack:"signal"`
	Type   SignalType `json:"type" msgpack:"type"`
}

type PTTAudioRequest struct {
	Channel   string `json:"channel" msgpack:"channel"`
	AudioData any    `json:"audioData" msgpack:"audioData"`
	UserID    string `json:"userId" msgpack:"userId"`
	UserName  string `json:"userName" msgpack:"userName"`
}

type PTTAudioEvent struct {
	AudioData any    `json:"audioData" msgpack:"audioData"`
	From      string `json:"from" msgpack:"from"`
	UserName  string `json:"userName" msgpack:"userName"`
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
}

type PTTStatusRequest struct {
	Channel  string `json:"channel" msgpack:"channel"`
	Status   any    `json:"status" msgpack:"status"`
	UserID   string `json:"userId" msgpack:"userId"`
	UserName string `json:"userName" msgpack:"userName"`
}

type PTTStatusEvent struct {
	Status   any    `json:"status" msgpack:"status"`
	From     string `json:"from" msgpack:"from"`
	UserName string `json:"userName" msgpack:"userName"`
}

type ChatRequest struct {
	Channel  string `json:"channel" msgpack:"channel"`
	Message  string `json:"message" msgpack:"message"`
	UserName string `json:"userName" msgpack:"userName"`
}

type ChatEvent struct {
	UserName  string `json:"userName" msgpack:"userName"`
	Message   string `json:"message" msgpack:"message"`
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
}

type ErrorEvent struct {
	Error string `json:"error" msgpack:"error"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status     string `json:"status"`
	Security   int    `json:"security"`
	Management int    `json:"management"`
	Total      int    `json:"total"`
}
