package bridge

// Telephony media-stream control frames. Field shapes follow the Twilio
// bidirectional stream protocol.

type twilioFrame struct {
	Event string      `json:"event"`
	Start *startFrame `json:"start,omitempty"`
	Media *mediaFrame `json:"media,omitempty"`
}

type startFrame struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaFrame struct {
	Payload string `json:"payload"` // base64 audio frame
}

// outboundMedia is the frame shape for model audio sent back to the caller.
type outboundMedia struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

func newOutboundMedia(streamSID, payload string) outboundMedia {
	return outboundMedia{
		Event:     "media",
		StreamSID: streamSID,
		Media:     mediaPayload{Payload: payload},
	}
}
