// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventControllerConnected    EventType = "CONTROLLER_CONNECTED"
	EventControllerDisconnected EventType = "CONTROLLER_DISCONNECTED"
	EventControllerError        EventType = "CONTROLLER_ERROR"
	EventOperationCompleted     EventType = "OPERATION_COMPLETED"
	EventOperationFailed        EventType = "OPERATION_FAILED"
	EventActionGroupRunning     EventType = "ACTION_GROUP_RUNNING"
	EventActionGroupStopped     EventType = "ACTION_GROUP_STOPPED"
	EventActionGroupComplete    EventType = "ACTION_GROUP_COMPLETE"
	EventActionGroupWatchEnded  EventType = "ACTION_GROUP_WATCH_ENDED"
	EventBatteryReading         EventType = "BATTERY_READING"
)

// Event severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// ControllerEvent represents an event in the system
type ControllerEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"`
}

// NewControllerEvent stamps a new event
func NewControllerEvent(eventType EventType, severity string, data JSONObject) *ControllerEvent {
	return &ControllerEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
		Source:    "servo-service",
		Severity:  severity,
	}
}

// OperationEventData represents operation-related events
type OperationEventData struct {
	OperationID   uuid.UUID       `json:"operation_id"`
	OperationType OperationType   `json:"operation_type"`
	Status        OperationStatus `json:"status"`
	Duration      *int            `json:"duration_ms,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
}
