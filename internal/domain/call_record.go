package domain

import (
	"time"
)

// CallSource represents how a call was initiated.
type CallSource string

const (
	CallSourceInbound  CallSource = "inbound"
	CallSourceOutbound CallSource = "outbound"
)

// CallRecord is the persisted record of a completed call.
type CallRecord struct {
	ID           string     `json:"id" gorm:"column:id;primaryKey"`
	CallSID      string     `json:"call_sid" gorm:"column:call_sid;unique"`
	CallerNumber string     `json:"caller_number" gorm:"column:caller_number"`
	Source       CallSource `json:"source" gorm:"column:source"`
	ThreadID     string     `json:"thread_id" gorm:"column:thread_id"`
	StartedAt    time.Time  `json:"started_at" gorm:"column:started_at"`
	EndedAt      time.Time  `json:"ended_at" gorm:"column:ended_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// CallMessage is one transcript line of a persisted call.
type CallMessage struct {
	ID        string    `json:"id" gorm:"column:id;primaryKey"`
	CallID    string    `json:"call_id" gorm:"column:call_id;index"`
	Speaker   string    `json:"speaker" gorm:"column:speaker"` // caller, agent
	Content   string    `json:"content" gorm:"column:content"`
	Position  int       `json:"position" gorm:"column:position"` // append order within the call
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (CallMessage) TableName() string {
	return "call_messages"
}
