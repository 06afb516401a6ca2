package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptTextFormat(t *testing.T) {
	sess := NewSession("CA1", "+15550001", "Hello")
	assert.Equal(t, "", sess.TranscriptText())

	sess.AppendTranscript(SpeakerCaller, "What are your hours?")
	sess.AppendTranscript(SpeakerAgent, "We are open nine to five.")
	sess.AppendTranscript(SpeakerCaller, "Thanks, bye.")

	assert.Equal(t,
		"User: What are your hours?\nAgent: We are open nine to five.\nUser: Thanks, bye.\n",
		sess.TranscriptText())
}

func TestTranscriptReturnsCopy(t *testing.T) {
	sess := NewSession("CA1", "+15550001", "Hello")
	sess.AppendTranscript(SpeakerCaller, "one")

	entries := sess.Transcript()
	entries[0].Text = "mutated"

	assert.Equal(t, "one", sess.Transcript()[0].Text)
}
