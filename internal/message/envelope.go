package message

// Envelope types sent by the client on the session channel.
const (
	TypeHello            = "hello"
	TypeTap              = "tap"
	TypeStop             = "stop"
	TypeSpeechEnd        = "speech-end"
	TypeSpeechError      = "speech-error"
	TypeTranscript       = "transcript"
	TypeRecognitionError = "recognition-error"
	TypeRecording        = "recording"
	TypeMicStatus        = "mic-status"
	TypeFrame            = "frame"
	TypeCameraError      = "camera-error"
	TypeLocation         = "location"
	TypeLocationError    = "location-error"
)

// Envelope types sent by the server on the session channel.
const (
	TypeWelcome       = "welcome"
	TypeState         = "state"
	TypeSpeak         = "speak"
	TypeListen        = "listen"
	TypeMicPermission = "mic-permission"
	TypeCapture       = "capture"
	TypeLocate        = "locate"
	TypeCancel        = "cancel"
)

// Listen modes.
const (
	ListenRecognize = "recognize" // client runs its own recognizer
	ListenRecord    = "record"    // client records and the server transcribes
)

// Envelope is one JSON frame on the session WebSocket. Requests the server
// sends carry an Op number; the client's reply echoes it.
type Envelope struct {
	Type string `json:"type"`
	Op   uint64 `json:"op,omitempty"`

	ClientID string `json:"client_id,omitempty"`
	State    string `json:"state,omitempty"`

	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Control  string `json:"control,omitempty"`

	// Audio carries server-synthesized speech (speak) or a client
	// recording (recording), base64 in JSON.
	Audio       []byte `json:"audio,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	Image    string `json:"image,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	Mode      string `json:"mode,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
	Granted   bool   `json:"granted,omitempty"`

	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`

	SupportsRecognition bool `json:"supports_recognition,omitempty"`
	SupportsSynthesis   bool `json:"supports_synthesis,omitempty"`
}
