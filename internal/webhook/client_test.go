package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsPayloadAndReturnsBody(t *testing.T) {
	var got Payload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte("plain answer"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	body, err := client.Send(context.Background(), RouteQuestion, "What are your hours?", "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", body)
	assert.Equal(t, Payload{Route: "3", Data1: "What are your hours?", Data2: "thread-1"}, got)
}

func TestSendNonSuccessStatusIsDeliveryError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	_, err := client.Send(context.Background(), RouteFlushTranscript, "+15550001", "User: hi\n")
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, RouteFlushTranscript, deliveryErr.Route)
	assert.Equal(t, http.StatusBadGateway, deliveryErr.Status)
}

func TestSendUnreachableEndpointIsDeliveryError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/nowhere")
	_, err := client.Send(context.Background(), RouteResolveGreeting, "+15550001", "empty")

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, RouteResolveGreeting, deliveryErr.Route)
}

func TestSendStructuredParsesReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"We open at nine.","firstMessage":"Hi Alex!","thread":"thread-2"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	reply, raw, err := client.SendStructured(context.Background(), RouteResolveGreeting, "+15550001", "empty")
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "We open at nine.", reply.Message)
	assert.Equal(t, "Hi Alex!", reply.FirstMessage)
	assert.Equal(t, "thread-2", reply.Thread)
	assert.NotEmpty(t, raw)
}

func TestSendStructuredMalformedReplyKeepsRawBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  Sure, we open at nine.  "))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	reply, raw, err := client.SendStructured(context.Background(), RouteQuestion, "hours?", "")
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.Equal(t, "Sure, we open at nine.", raw)

	var malformed *MalformedReplyError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "Sure, we open at nine.", malformed.Raw)
	assert.Equal(t, RouteQuestion, malformed.Route)
}
