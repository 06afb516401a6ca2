// Package dispatch maps model-issued tool calls onto automation webhook
// routes and turns the results back into conversation events.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/internal/prompts"
	"github.com/calleyai/coldcall-gateway/internal/realtime"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// ErrUnknownTool is returned when the model names a tool that is not
// registered. Not fatal to the call.
var ErrUnknownTool = errors.New("unknown tool")

// ToolCall is the closed set of tools the model may invoke.
type ToolCall interface {
	isToolCall()
}

// QuestionAnswer asks the automation service an FAQ question.
type QuestionAnswer struct {
	Question string `json:"question"`
}

func (QuestionAnswer) isToolCall() {}

// BookMeeting books a meeting at the given address.
type BookMeeting struct {
	Address string `json:"address"`
}

func (BookMeeting) isToolCall() {}

// ParseToolCall decodes a (name, JSON arguments) pair from the model into a
// ToolCall variant.
func ParseToolCall(name, arguments string) (ToolCall, error) {
	switch name {
	case realtime.ToolNameQuestionAnswer:
		var call QuestionAnswer
		if err := json.Unmarshal([]byte(arguments), &call); err != nil {
			return nil, fmt.Errorf("failed to parse %s arguments: %w", name, err)
		}
		return call, nil
	case realtime.ToolNameBookMeeting:
		var call BookMeeting
		if err := json.Unmarshal([]byte(arguments), &call); err != nil {
			return nil, fmt.Errorf("failed to parse %s arguments: %w", name, err)
		}
		return call, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

// WebhookSender is the webhook surface the dispatcher needs.
type WebhookSender interface {
	SendStructured(ctx context.Context, route webhook.Route, data1, data2 string) (*webhook.Reply, string, error)
}

// Dispatcher executes tool calls against the automation webhook on behalf of
// a media bridge.
type Dispatcher struct {
	webhook WebhookSender
}

// NewDispatcher creates a dispatcher backed by the given webhook client.
func NewDispatcher(wh WebhookSender) *Dispatcher {
	return &Dispatcher{webhook: wh}
}

// Dispatch executes one model-issued tool call and returns the conversation
// events to forward to the model. Webhook failures yield the fixed apology
// event; unknown tools and malformed arguments yield no events. Errors never
// propagate past this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string, sess *domain.Session) []realtime.Event {
	call, err := ParseToolCall(name, arguments)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			logger.Base().Warn("ignoring unrecognized tool call",
				zap.String("tool", name), zap.String("call_sid", sess.CallSID))
		} else {
			logger.Base().Warn("dropping tool call with malformed arguments",
				zap.String("tool", name), zap.String("call_sid", sess.CallSID), zap.Error(err))
		}
		return nil
	}

	switch c := call.(type) {
	case QuestionAnswer:
		return d.answerQuestion(ctx, c, sess)
	case BookMeeting:
		return d.bookMeeting(ctx, c, sess)
	}
	return nil
}

// answerQuestion resolves an FAQ question through route "3", carrying the
// session's continuation thread.
func (d *Dispatcher) answerQuestion(ctx context.Context, call QuestionAnswer, sess *domain.Session) []realtime.Event {
	reply, raw, err := d.webhook.SendStructured(ctx, webhook.RouteQuestion, call.Question, sess.ThreadID)
	message, ok := resolveMessage(reply, raw, err, prompts.DefaultAnswerMessage)
	if !ok {
		logger.Base().Warn("question webhook failed, sending apology",
			zap.String("call_sid", sess.CallSID), zap.Error(err))
		return apologyEvents()
	}

	// The thread token is only advanced by Q&A replies.
	if reply != nil && reply.Thread != "" {
		sess.ThreadID = reply.Thread
		logger.Base().Info("updated automation thread",
			zap.String("call_sid", sess.CallSID), zap.String("thread", reply.Thread))
	}

	instructions := fmt.Sprintf(
		"Respond to the user's question %q based on this information: %s. Be concise and friendly.",
		call.Question, message)
	return []realtime.Event{
		realtime.FunctionOutput(message),
		realtime.ResponseWithInstructions(instructions),
	}
}

// bookMeeting requests a booking through route "4".
func (d *Dispatcher) bookMeeting(ctx context.Context, call BookMeeting, sess *domain.Session) []realtime.Event {
	reply, raw, err := d.webhook.SendStructured(ctx, webhook.RouteBooking, sess.CallerNumber, call.Address)
	message, ok := resolveMessage(reply, raw, err, prompts.DefaultBookingMessage)
	if !ok {
		logger.Base().Warn("booking webhook failed, sending apology",
			zap.String("call_sid", sess.CallSID), zap.Error(err))
		return apologyEvents()
	}

	instructions := fmt.Sprintf(
		"Inform the user about the meeting booking status: %s. Be concise and friendly.", message)
	return []realtime.Event{
		realtime.FunctionOutput(message),
		realtime.ResponseWithInstructions(instructions),
	}
}

// resolveMessage picks the spoken result text: the structured message field,
// the raw body when the reply was unparsable, or the default when the field
// is absent. Delivery failures are not recoverable here.
func resolveMessage(reply *webhook.Reply, raw string, err error, defaultMessage string) (string, bool) {
	var malformed *webhook.MalformedReplyError
	switch {
	case err == nil:
		if reply.Message != "" {
			return reply.Message, true
		}
		return defaultMessage, true
	case errors.As(err, &malformed):
		if malformed.Raw != "" {
			return malformed.Raw, true
		}
		return defaultMessage, true
	default:
		return "", false
	}
}

func apologyEvents() []realtime.Event {
	return []realtime.Event{
		realtime.ResponseWithInstructions(prompts.ApologyInstruction),
	}
}
