package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) GetValue(ctx context.Context, key string) (string, error) {
	return f.values[key], f.err
}

func (f *fakeRedis) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func (f *fakeRedis) DelValue(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.values, key)
	return nil
}

func TestPresenceRegisterAndUnregister(t *testing.T) {
	rdb := newFakeRedis()
	presence := NewPresence(rdb, "pod-1")

	sess := domain.NewSession("CA1", "+15550001", "Hello")
	presence.Register(sess)

	raw, ok := rdb.values["coldcall:session:info:CA1"]
	require.True(t, ok)

	var info SessionInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	assert.Equal(t, "CA1", info.CallSID)
	assert.Equal(t, "pod-1", info.InstanceID)
	assert.Equal(t, "+15550001", info.CallerNumber)

	presence.Unregister("CA1")
	_, ok = rdb.values["coldcall:session:info:CA1"]
	assert.False(t, ok)
}

func TestPresenceFailuresDoNotBlockRegistry(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("redis down")
	reg := New(NewPresence(rdb, "pod-1"))

	sess := domain.NewSession("CA2", "+15550002", "Hello")
	reg.Create(sess)
	assert.Same(t, sess, reg.Get("CA2"))

	reg.Remove("CA2")
	assert.Nil(t, reg.Get("CA2"))
}
