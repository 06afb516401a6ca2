package domain

import (
	"strings"
	"time"
)

// Speaker tags a transcript entry with who produced it.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

// TranscriptEntry is a single speaker-tagged utterance.
type TranscriptEntry struct {
	Speaker Speaker
	Text    string
}

// Session is the per-call state record. It is created on call start, mutated
// exclusively by the owning media bridge while streaming, and removed from the
// registry after the disconnect flush.
type Session struct {
	CallSID      string
	StreamSID    string // set once on stream start, absent before streaming
	CallerNumber string
	FirstMessage string
	ThreadID     string // automation continuation token, carried across Q&A calls
	StartedAt    time.Time
	Degraded     bool // no end-to-end call identifier could be linked

	transcript []TranscriptEntry
}

// NewSession creates a session for a call.
func NewSession(callSID, callerNumber, firstMessage string) *Session {
	return &Session{
		CallSID:      callSID,
		CallerNumber: callerNumber,
		FirstMessage: firstMessage,
		StartedAt:    time.Now(),
	}
}

// AppendTranscript appends one utterance. The transcript is append-only;
// entries are never edited or removed.
func (s *Session) AppendTranscript(speaker Speaker, text string) {
	s.transcript = append(s.transcript, TranscriptEntry{Speaker: speaker, Text: text})
}

// Transcript returns a copy of the transcript entries in append order.
func (s *Session) Transcript() []TranscriptEntry {
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// TranscriptText renders the transcript in the line format the automation
// service ingests on the final flush: "User: ...\n" and "Agent: ...\n".
func (s *Session) TranscriptText() string {
	var b strings.Builder
	for _, e := range s.transcript {
		switch e.Speaker {
		case SpeakerCaller:
			b.WriteString("User: ")
		case SpeakerAgent:
			b.WriteString("Agent: ")
		}
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	return b.String()
}
