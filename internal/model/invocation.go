package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvocationOutcome describes how a recorded tool invocation ended.
type InvocationOutcome string

const (
	InvocationOutcomeSuccess InvocationOutcome = "success"
	InvocationOutcomeFailure InvocationOutcome = "failure"
)

// Invocation is a usage ledger entry for one tool call that reached its handler.
type Invocation struct {
	gorm.Model

	// InvocationID is the UUID reported to the caller in the call result.
	InvocationID string `json:"invocation_id" gorm:"type:varchar(36);uniqueIndex;not null"`

	// Tool is the invocation name of the tool, not its registry key.
	Tool string `json:"tool" gorm:"index;not null"`

	// Mode is either "execute" or "estimate".
	Mode string `json:"mode" gorm:"type:varchar(20);not null"`

	Outcome InvocationOutcome `json:"outcome" gorm:"type:varchar(20);not null"`

	// Credits is always 0 for failed invocations.
	Credits float64 `json:"credits"`

	Duration time.Duration `json:"duration"`

	// Error holds the handler's error message for failed invocations.
	Error string `json:"error,omitempty"`

	// Arguments are the validated arguments the handler was called with.
	Arguments datatypes.JSON `json:"arguments" gorm:"type:jsonb"`
}
