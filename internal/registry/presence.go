package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"github.com/calleyai/coldcall-gateway/pkg/redis"
	"go.uber.org/zap"
)

const (
	presenceKeyPrefix = "coldcall:session:info"
	presenceTTL       = 1 * time.Hour
)

// SessionInfo is the presence record published for a live call so operators
// can see which instance owns it.
type SessionInfo struct {
	CallSID      string    `json:"callSid"`
	InstanceID   string    `json:"instanceId"`
	CallerNumber string    `json:"callerNumber"`
	StartTime    time.Time `json:"startTime"`
}

// Presence mirrors session lifetimes into Redis with a TTL. All operations
// are best-effort; failures are logged and never block call handling.
type Presence struct {
	redisSvc   redis.ServiceInterface
	instanceID string
}

// NewPresence creates a presence mirror for this instance.
func NewPresence(redisSvc redis.ServiceInterface, instanceID string) *Presence {
	return &Presence{redisSvc: redisSvc, instanceID: instanceID}
}

// Register publishes a presence record for a session.
func (p *Presence) Register(sess *domain.Session) {
	info := SessionInfo{
		CallSID:      sess.CallSID,
		InstanceID:   p.instanceID,
		CallerNumber: sess.CallerNumber,
		StartTime:    sess.StartedAt,
	}
	data, _ := json.Marshal(info)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.redisSvc.SetValue(ctx, p.key(sess.CallSID), string(data), presenceTTL); err != nil {
		logger.Base().Warn("failed to register session presence",
			zap.String("call_sid", sess.CallSID), zap.Error(err))
		return
	}
	logger.Base().Debug("session presence registered",
		zap.String("call_sid", sess.CallSID), zap.String("instance_id", p.instanceID))
}

// Unregister removes the presence record for a call.
func (p *Presence) Unregister(callSID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.redisSvc.DelValue(ctx, p.key(callSID)); err != nil {
		logger.Base().Warn("failed to unregister session presence",
			zap.String("call_sid", callSID), zap.Error(err))
	}
}

func (p *Presence) key(callSID string) string {
	return fmt.Sprintf("%s:%s", presenceKeyPrefix, callSID)
}
