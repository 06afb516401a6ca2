package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallRepository handles database operations for completed calls.
type CallRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new call repository.
func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

// SaveCall persists a finished session as one call record plus its transcript
// lines, in append order, within a single transaction.
func (r *CallRepository) SaveCall(ctx context.Context, sess *domain.Session) error {
	now := time.Now()
	record := &domain.CallRecord{
		ID:           uuid.New().String(),
		CallSID:      sess.CallSID,
		CallerNumber: sess.CallerNumber,
		Source:       domain.CallSourceInbound,
		ThreadID:     sess.ThreadID,
		StartedAt:    sess.StartedAt,
		EndedAt:      now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	entries := sess.Transcript()
	messages := make([]*domain.CallMessage, 0, len(entries))
	for i, entry := range entries {
		messages = append(messages, &domain.CallMessage{
			ID:        uuid.New().String(),
			CallID:    record.ID,
			Speaker:   string(entry.Speaker),
			Content:   entry.Text,
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create call record: %w", err)
		}
		if len(messages) > 0 {
			if err := tx.CreateInBatches(messages, 100).Error; err != nil {
				return fmt.Errorf("failed to create call messages: %w", err)
			}
		}
		return nil
	})
}

// GetByCallSID retrieves a call record by its telephony call SID.
func (r *CallRepository) GetByCallSID(ctx context.Context, callSID string) (*domain.CallRecord, error) {
	var record domain.CallRecord
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &record, nil
}

// GetMessages retrieves the transcript lines of a call in append order.
func (r *CallRepository) GetMessages(ctx context.Context, callID string) ([]*domain.CallMessage, error) {
	var messages []*domain.CallMessage
	if err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("position ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get call messages: %w", err)
	}
	return messages, nil
}
