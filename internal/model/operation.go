// internal/model/operation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationType represents the type of operation
type OperationType string

const (
	OperationTypeConnect             OperationType = "CONNECT"
	OperationTypeDisconnect          OperationType = "DISCONNECT"
	OperationTypeMoveServos          OperationType = "MOVE_SERVOS"
	OperationTypeReadPositions       OperationType = "READ_POSITIONS"
	OperationTypeBatteryVoltage      OperationType = "BATTERY_VOLTAGE"
	OperationTypePowerOff            OperationType = "POWER_OFF"
	OperationTypeRunActionGroup      OperationType = "RUN_ACTION_GROUP"
	OperationTypeStopActionGroup     OperationType = "STOP_ACTION_GROUP"
	OperationTypeSetActionGroupSpeed OperationType = "SET_ACTION_GROUP_SPEED"
	OperationTypePollNotification    OperationType = "POLL_NOTIFICATION"
)

// OperationStatus represents the status of an operation
type OperationStatus string

const (
	OperationStatusPending OperationStatus = "PENDING"
	OperationStatusSuccess OperationStatus = "SUCCESS"
	OperationStatusFailed  OperationStatus = "FAILED"
	OperationStatusTimeout OperationStatus = "TIMEOUT"
)

// ServoOperation is one journaled command sent to the controller
type ServoOperation struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OperationType OperationType   `json:"operation_type" db:"operation_type"`
	OperationData JSONObject      `json:"operation_data" db:"operation_data"`
	Status        OperationStatus `json:"status" db:"status"`
	StartedAt     time.Time       `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at" db:"completed_at"`
	DurationMs    *int            `json:"duration_ms" db:"duration_ms"`
	ErrorMessage  *string         `json:"error_message" db:"error_message"`
	RequestID     *string         `json:"request_id,omitempty" db:"request_id"`
	Result        JSONObject      `json:"result" db:"result"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NewServoOperation creates a pending operation
func NewServoOperation(opType OperationType, data JSONObject) *ServoOperation {
	now := time.Now()
	return &ServoOperation{
		ID:            uuid.New(),
		OperationType: opType,
		OperationData: data,
		Status:        OperationStatusPending,
		StartedAt:     now,
		CreatedAt:     now,
	}
}

// Complete records the outcome of the operation
func (op *ServoOperation) Complete(status OperationStatus, result JSONObject, err error) {
	now := time.Now()
	duration := int(now.Sub(op.StartedAt).Milliseconds())

	op.Status = status
	op.CompletedAt = &now
	op.DurationMs = &duration
	op.Result = result
	if err != nil {
		msg := err.Error()
		op.ErrorMessage = &msg
	}
}

// IsCompleted checks if operation is completed (success or failed)
func (op *ServoOperation) IsCompleted() bool {
	return op.Status != OperationStatusPending
}

// OperationFilter narrows operation listings
type OperationFilter struct {
	OperationType *OperationType
	Status        *OperationStatus
	Since         *time.Time
	Limit         int
	Offset        int
}

// MoveOperationData represents a move request
type MoveOperationData struct {
	TimeMs    uint16        `json:"time_ms"`
	Unit      string        `json:"unit"`
	Servos    []ServoTarget `json:"servos"`
	WaitReply bool          `json:"wait_reply"`
}

// ServoTarget is one servo in a move request. Exactly one of Position and
// Angle is used, depending on the request unit.
type ServoTarget struct {
	ID       uint8    `json:"id"`
	Position *uint16  `json:"position,omitempty"`
	Angle    *float64 `json:"angle,omitempty"`
}

// ActionGroupOperationData represents run and speed requests
type ActionGroupOperationData struct {
	GroupID     uint8  `json:"group_id"`
	Repetitions uint16 `json:"repetitions,omitempty"`
	Speed       uint16 `json:"speed,omitempty"`
	Watch       bool   `json:"watch,omitempty"`
}
