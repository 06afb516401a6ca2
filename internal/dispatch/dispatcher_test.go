package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/internal/prompts"
	"github.com/calleyai/coldcall-gateway/internal/realtime"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	reply *webhook.Reply
	raw   string
	err   error

	gotRoute webhook.Route
	gotData1 string
	gotData2 string
}

func (s *stubSender) SendStructured(ctx context.Context, route webhook.Route, data1, data2 string) (*webhook.Reply, string, error) {
	s.gotRoute, s.gotData1, s.gotData2 = route, data1, data2
	return s.reply, s.raw, s.err
}

func TestParseToolCall(t *testing.T) {
	call, err := ParseToolCall(realtime.ToolNameQuestionAnswer, `{"question":"hours?"}`)
	require.NoError(t, err)
	assert.Equal(t, QuestionAnswer{Question: "hours?"}, call)

	call, err = ParseToolCall(realtime.ToolNameBookMeeting, `{"address":"12 Main St"}`)
	require.NoError(t, err)
	assert.Equal(t, BookMeeting{Address: "12 Main St"}, call)

	_, err = ParseToolCall("transfer_money", `{}`)
	assert.True(t, errors.Is(err, ErrUnknownTool))

	_, err = ParseToolCall(realtime.ToolNameQuestionAnswer, `{broken`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownTool))
}

func TestDispatchQuestionUsesRouteThreeWithThread(t *testing.T) {
	sender := &stubSender{reply: &webhook.Reply{Message: "We open at nine.", Thread: "thread-2"}}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA1", "+15550001", "Hello")
	sess.ThreadID = "thread-1"

	events := d.Dispatch(context.Background(), realtime.ToolNameQuestionAnswer, `{"question":"hours?"}`, sess)
	require.Len(t, events, 2)

	assert.Equal(t, webhook.RouteQuestion, sender.gotRoute)
	assert.Equal(t, "hours?", sender.gotData1)
	assert.Equal(t, "thread-1", sender.gotData2)

	item := events[0]["item"].(map[string]interface{})
	assert.Equal(t, "function_call_output", item["type"])
	assert.Equal(t, "We open at nine.", item["output"])

	resp := events[1]["response"].(map[string]interface{})
	assert.Contains(t, resp["instructions"], "We open at nine.")

	// The reply advanced the continuation thread.
	assert.Equal(t, "thread-2", sess.ThreadID)
}

func TestDispatchQuestionKeepsThreadWhenReplyOmitsIt(t *testing.T) {
	sender := &stubSender{reply: &webhook.Reply{Message: "Sure."}}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA2", "+15550002", "Hello")
	sess.ThreadID = "thread-1"

	d.Dispatch(context.Background(), realtime.ToolNameQuestionAnswer, `{"question":"hours?"}`, sess)
	assert.Equal(t, "thread-1", sess.ThreadID)
}

func TestDispatchBookingUsesRouteFourWithCallerNumber(t *testing.T) {
	sender := &stubSender{reply: &webhook.Reply{Message: "Booked for Tuesday"}}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA3", "+15550003", "Hello")

	events := d.Dispatch(context.Background(), realtime.ToolNameBookMeeting, `{"address":"12 Main St"}`, sess)
	require.Len(t, events, 2)

	assert.Equal(t, webhook.RouteBooking, sender.gotRoute)
	assert.Equal(t, "+15550003", sender.gotData1)
	assert.Equal(t, "12 Main St", sender.gotData2)
}

func TestDispatchMalformedReplyFallsBackToRawText(t *testing.T) {
	sender := &stubSender{
		raw: "We open at nine.",
		err: &webhook.MalformedReplyError{Route: webhook.RouteQuestion, Raw: "We open at nine."},
	}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA4", "+15550004", "Hello")

	events := d.Dispatch(context.Background(), realtime.ToolNameQuestionAnswer, `{"question":"hours?"}`, sess)
	require.Len(t, events, 2)
	item := events[0]["item"].(map[string]interface{})
	assert.Equal(t, "We open at nine.", item["output"])
}

func TestDispatchEmptyMessageUsesDefault(t *testing.T) {
	sender := &stubSender{reply: &webhook.Reply{}}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA5", "+15550005", "Hello")

	events := d.Dispatch(context.Background(), realtime.ToolNameQuestionAnswer, `{"question":"hours?"}`, sess)
	require.Len(t, events, 2)
	item := events[0]["item"].(map[string]interface{})
	assert.Equal(t, prompts.DefaultAnswerMessage, item["output"])
}

func TestDispatchDeliveryFailureSendsApology(t *testing.T) {
	sender := &stubSender{err: &webhook.DeliveryError{Route: webhook.RouteBooking, Status: 502}}
	d := NewDispatcher(sender)
	sess := domain.NewSession("CA6", "+15550006", "Hello")

	events := d.Dispatch(context.Background(), realtime.ToolNameBookMeeting, `{"address":"12 Main St"}`, sess)
	require.Len(t, events, 1)
	resp := events[0]["response"].(map[string]interface{})
	assert.Equal(t, prompts.ApologyInstruction, resp["instructions"])
}

func TestDispatchUnknownToolYieldsNoEvents(t *testing.T) {
	d := NewDispatcher(&stubSender{})
	sess := domain.NewSession("CA7", "+15550007", "Hello")

	assert.Nil(t, d.Dispatch(context.Background(), "transfer_money", `{}`, sess))
	assert.Nil(t, d.Dispatch(context.Background(), realtime.ToolNameBookMeeting, `{broken`, sess))
}
