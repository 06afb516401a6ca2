// Package bridge relays one telephony media stream to one realtime model
// stream: it performs the readiness handshake, multiplexes events from both
// sides in arrival order, accumulates the transcript, dispatches tool calls,
// and flushes the final transcript on disconnect.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/internal/prompts"
	"github.com/calleyai/coldcall-gateway/internal/realtime"
	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// State is the bridge lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateStreaming
	StateClosing
	StateClosed
)

// MessageStream is the websocket surface the bridge needs from each of its
// two streams. *websocket.Conn satisfies it directly.
type MessageStream interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// ToolDispatcher executes a model-issued tool call and returns the events to
// forward back to the model.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name, arguments string, sess *domain.Session) []realtime.Event
}

// TranscriptFlusher delivers the final transcript to the automation service.
type TranscriptFlusher interface {
	Send(ctx context.Context, route webhook.Route, data1, data2 string) (string, error)
}

// CallRecorder persists a completed call. Optional.
type CallRecorder interface {
	SaveCall(ctx context.Context, sess *domain.Session) error
}

// Config wires one bridge instance.
type Config struct {
	Session    *domain.Session
	Registry   *registry.Registry
	Telephony  MessageStream
	Model      MessageStream
	Dispatcher ToolDispatcher
	Webhook    TranscriptFlusher
	Recorder   CallRecorder // nil disables persistence
	Voice      string
}

// Bridge owns both streams of a single call. All state below is mutated only
// by the event loop goroutine; no two events for the same session are ever
// processed concurrently.
type Bridge struct {
	session    *domain.Session
	registry   *registry.Registry
	telephony  MessageStream
	model      MessageStream
	dispatcher ToolDispatcher
	webhook    TranscriptFlusher
	recorder   CallRecorder
	voice      string

	// state is written by the event loop and read concurrently via State().
	state        atomic.Int32
	greetingSent bool
	done         chan struct{}
	closeOnce    sync.Once
}

// New creates a bridge in the Connecting state.
func New(cfg Config) *Bridge {
	b := &Bridge{
		session:    cfg.Session,
		registry:   cfg.Registry,
		telephony:  cfg.Telephony,
		model:      cfg.Model,
		dispatcher: cfg.Dispatcher,
		webhook:    cfg.Webhook,
		recorder:   cfg.Recorder,
		voice:      cfg.Voice,
		done:       make(chan struct{}),
	}
	b.setState(StateConnecting)
	return b
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

func (b *Bridge) setState(s State) {
	b.state.Store(int32(s))
}

// Run performs the readiness handshake and then multiplexes both streams
// until the call ends. It returns once teardown has completed.
func (b *Bridge) Run(ctx context.Context) error {
	// Connecting -> Ready: send the one-time session configuration. Readiness
	// is signaled by the send succeeding; no external ack is required.
	if err := b.model.WriteJSON(realtime.SessionUpdate(b.voice, prompts.SystemMessage)); err != nil {
		b.shutdown()
		return fmt.Errorf("failed to send session configuration: %w", err)
	}
	b.setState(StateReady)
	logger.Base().Info("model session configured", zap.String("call_sid", b.session.CallSID))

	// The opening line may already be resolved by the inbound call handler;
	// otherwise the stream-start custom parameters will supply it.
	b.trySendOpening()

	telCh := b.pump(b.telephony)
	modelCh := b.pump(b.model)

	for b.State() != StateClosed {
		select {
		case f, ok := <-telCh:
			if !ok || f.err != nil {
				if f.err != nil {
					logger.Base().Info("telephony stream closed",
						zap.String("call_sid", b.session.CallSID), zap.Error(f.err))
				}
				telCh = nil
				b.shutdown()
				continue
			}
			b.safeHandle(func() { b.handleTelephonyMessage(ctx, f.data) })
		case f, ok := <-modelCh:
			if !ok || f.err != nil {
				if f.err != nil {
					logger.Base().Warn("model stream closed",
						zap.String("call_sid", b.session.CallSID), zap.Error(f.err))
				}
				modelCh = nil
				b.shutdown()
				continue
			}
			b.safeHandle(func() { b.handleModelMessage(ctx, f.data) })
		case <-ctx.Done():
			b.shutdown()
		}
	}
	return nil
}

type streamMessage struct {
	data []byte
	err  error
}

// pump reads one stream into a channel so the event loop can wait on both
// streams at once. Whichever stream produces a message first is handled
// first; the loop resumes waiting on both immediately after.
func (b *Bridge) pump(s MessageStream) <-chan streamMessage {
	ch := make(chan streamMessage)
	go func() {
		defer close(ch)
		for {
			_, data, err := s.ReadMessage()
			select {
			case ch <- streamMessage{data: data, err: err}:
			case <-b.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// safeHandle keeps a single bad message from tearing down the call.
func (b *Bridge) safeHandle(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Base().Error("recovered while handling stream event",
				zap.String("call_sid", b.session.CallSID), zap.Any("panic", r))
		}
	}()
	fn()
}

// trySendOpening sends the opening utterance once readiness is signaled and
// an opening line exists. The agent always speaks first, exactly once.
func (b *Bridge) trySendOpening() {
	if b.greetingSent {
		return
	}
	switch b.State() {
	case StateConnecting, StateClosing, StateClosed:
		return
	}
	if b.session.FirstMessage == "" {
		return
	}

	if err := b.model.WriteJSON(realtime.UserItem(b.session.FirstMessage)); err != nil {
		logger.Base().Error("failed to send opening utterance",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		b.shutdown()
		return
	}
	if err := b.model.WriteJSON(realtime.ResponseCreate()); err != nil {
		logger.Base().Error("failed to request opening response",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		b.shutdown()
		return
	}

	b.greetingSent = true
	b.setState(StateStreaming)
	logger.Base().Info("opening utterance sent",
		zap.String("call_sid", b.session.CallSID),
		zap.String("first_message", b.session.FirstMessage))
}

// handleTelephonyMessage processes one frame from the telephony stream.
func (b *Bridge) handleTelephonyMessage(ctx context.Context, data []byte) {
	var frame twilioFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		logger.Base().Warn("dropping malformed telephony frame",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		return
	}

	switch frame.Event {
	case "start":
		b.handleStreamStart(frame.Start)
	case "media":
		b.handleMediaFrame(frame.Media)
	case "stop":
		logger.Base().Info("telephony stream stopped", zap.String("call_sid", b.session.CallSID))
		b.shutdown()
	default:
		logger.Base().Debug("telephony event",
			zap.String("call_sid", b.session.CallSID), zap.String("event", frame.Event))
	}
}

// handleStreamStart records the stream SID, fills in any session fields the
// inbound call handler could not resolve, and attempts the opening
// transition.
func (b *Bridge) handleStreamStart(start *startFrame) {
	if start == nil {
		logger.Base().Warn("start frame without start payload", zap.String("call_sid", b.session.CallSID))
		return
	}

	// A degraded session has a placeholder key; the start frame is the last
	// chance to link it to the real call.
	if b.session.Degraded && start.CallSID != "" && b.session.CallSID != start.CallSID {
		if prior := b.registry.Get(start.CallSID); prior != nil {
			if b.session.CallerNumber == "" {
				b.session.CallerNumber = prior.CallerNumber
			}
			if b.session.FirstMessage == "" {
				b.session.FirstMessage = prior.FirstMessage
			}
			if b.session.ThreadID == "" {
				b.session.ThreadID = prior.ThreadID
			}
		}
		oldKey := b.session.CallSID
		b.registry.Remove(oldKey)
		b.session.CallSID = start.CallSID
		b.registry.Create(b.session)
		logger.Base().Info("degraded session linked to call",
			zap.String("placeholder", oldKey), zap.String("call_sid", start.CallSID))
	}

	// StreamSID transitions from absent to present at most once.
	if b.session.StreamSID == "" {
		b.session.StreamSID = start.StreamSID
	}

	if b.session.CallerNumber == "" {
		if caller, ok := start.CustomParameters["callerNumber"]; ok && caller != "" {
			b.session.CallerNumber = caller
		}
	}
	if b.session.FirstMessage == "" {
		if first, ok := start.CustomParameters["firstMessage"]; ok && first != "" {
			b.session.FirstMessage = first
		} else {
			b.session.FirstMessage = prompts.FallbackGreeting
		}
	}

	logger.Base().Info("telephony stream started",
		zap.String("call_sid", b.session.CallSID),
		zap.String("stream_sid", b.session.StreamSID),
		zap.String("caller_number", b.session.CallerNumber))

	b.trySendOpening()
}

// handleMediaFrame forwards one caller audio frame to the model, verbatim and
// unbuffered. No frame is forwarded before the opening utterance is sent.
func (b *Bridge) handleMediaFrame(media *mediaFrame) {
	if media == nil {
		return
	}
	if !b.greetingSent {
		b.trySendOpening()
		if !b.greetingSent {
			logger.Base().Debug("dropping caller audio before opening utterance",
				zap.String("call_sid", b.session.CallSID))
			return
		}
	}

	if err := b.model.WriteJSON(realtime.AudioAppend(media.Payload)); err != nil {
		logger.Base().Error("failed to forward caller audio",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		b.shutdown()
	}
}

// handleModelMessage processes one event from the model stream.
func (b *Bridge) handleModelMessage(ctx context.Context, data []byte) {
	var event map[string]interface{}
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Base().Warn("dropping malformed model event",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		return
	}
	eventType, ok := event["type"].(string)
	if !ok {
		logger.Base().Warn("dropping model event without type", zap.String("call_sid", b.session.CallSID))
		return
	}

	switch eventType {
	case "response.audio.delta":
		b.handleAudioDelta(event)
	case "response.function_call_arguments.done":
		b.handleFunctionCall(ctx, event)
	case "response.done":
		b.handleResponseDone(event)
	case "conversation.item.input_audio_transcription.completed":
		b.handleInputTranscription(event)
	default:
		// Observability only; skip high-frequency delta spam.
		if !strings.Contains(eventType, "delta") {
			logger.Base().Debug("model event",
				zap.String("call_sid", b.session.CallSID), zap.String("event_type", eventType))
		}
	}
}

// handleAudioDelta forwards model audio to the caller tagged with the current
// stream SID.
func (b *Bridge) handleAudioDelta(event map[string]interface{}) {
	delta, ok := event["delta"].(string)
	if !ok || delta == "" {
		return
	}
	if b.session.StreamSID == "" {
		logger.Base().Debug("dropping model audio before stream start",
			zap.String("call_sid", b.session.CallSID))
		return
	}

	if err := b.telephony.WriteJSON(newOutboundMedia(b.session.StreamSID, delta)); err != nil {
		logger.Base().Error("failed to forward model audio",
			zap.String("call_sid", b.session.CallSID), zap.Error(err))
		b.shutdown()
	}
}

// handleFunctionCall dispatches a completed tool call and forwards the
// resulting events to the model.
func (b *Bridge) handleFunctionCall(ctx context.Context, event map[string]interface{}) {
	name, _ := event["name"].(string)
	arguments, _ := event["arguments"].(string)
	logger.Base().Info("model requested tool call",
		zap.String("call_sid", b.session.CallSID), zap.String("tool", name))

	for _, ev := range b.dispatcher.Dispatch(ctx, name, arguments, b.session) {
		if err := b.model.WriteJSON(ev); err != nil {
			logger.Base().Error("failed to forward tool result",
				zap.String("call_sid", b.session.CallSID), zap.Error(err))
			b.shutdown()
			return
		}
	}
}

// handleResponseDone extracts the agent's spoken transcript, if present, and
// appends it to the session transcript.
func (b *Bridge) handleResponseDone(event map[string]interface{}) {
	transcript := extractAgentTranscript(event)
	if transcript == "" {
		return
	}
	b.session.AppendTranscript(domain.SpeakerAgent, transcript)
	logger.Base().Info("agent utterance",
		zap.String("call_sid", b.session.CallSID), zap.String("transcript", transcript))
}

// handleInputTranscription appends the caller's recognized utterance to the
// session transcript.
func (b *Bridge) handleInputTranscription(event map[string]interface{}) {
	transcript, ok := event["transcript"].(string)
	if !ok {
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}
	b.session.AppendTranscript(domain.SpeakerCaller, transcript)
	logger.Base().Info("caller utterance",
		zap.String("call_sid", b.session.CallSID), zap.String("transcript", transcript))
}

// extractAgentTranscript digs the spoken transcript out of a response.done
// event: response.output[0].content[*].transcript.
func extractAgentTranscript(event map[string]interface{}) string {
	response, ok := event["response"].(map[string]interface{})
	if !ok {
		return ""
	}
	output, ok := response["output"].([]interface{})
	if !ok || len(output) == 0 {
		return ""
	}
	item, ok := output[0].(map[string]interface{})
	if !ok {
		return ""
	}
	content, ok := item["content"].([]interface{})
	if !ok {
		return ""
	}
	for _, c := range content {
		if cm, ok := c.(map[string]interface{}); ok {
			if transcript, ok := cm["transcript"].(string); ok && transcript != "" {
				return transcript
			}
		}
	}
	return ""
}

// shutdown runs the Closing -> Closed transition exactly once: close the
// model connection, flush the transcript, persist the call record, and
// remove the session from the registry. Re-entry is a no-op.
func (b *Bridge) shutdown() {
	b.closeOnce.Do(func() {
		b.setState(StateClosing)
		close(b.done)

		_ = b.model.Close()
		_ = b.telephony.Close()

		// Teardown must not be skipped because the call's own context was
		// canceled by the disconnect.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Best-effort final flush; failures are logged, never retried.
		if _, err := b.webhook.Send(ctx, webhook.RouteFlushTranscript,
			b.session.CallerNumber, b.session.TranscriptText()); err != nil {
			logger.Base().Error("final transcript flush failed",
				zap.String("call_sid", b.session.CallSID), zap.Error(err))
		}

		if b.recorder != nil {
			if err := b.recorder.SaveCall(ctx, b.session); err != nil {
				logger.Base().Error("failed to persist call record",
					zap.String("call_sid", b.session.CallSID), zap.Error(err))
			}
		}

		b.registry.Remove(b.session.CallSID)
		b.setState(StateClosed)
		logger.Base().Info("call closed",
			zap.String("call_sid", b.session.CallSID),
			zap.Int("transcript_entries", len(b.session.Transcript())))
	})
}
