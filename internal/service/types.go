// internal/service/types.go
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"servo-service/internal/model"
	"servo-service/pkg/lsc"
)

// ErrInvalidRequest marks requests rejected before anything is sent to the board
var ErrInvalidRequest = errors.New("invalid request")

// ErrWatchActive is returned when a watch is already running for another group
var ErrWatchActive = errors.New("action group watch already active")

// Angle units accepted by move and read requests
const (
	UnitPosition = "position"
	UnitRadian   = "radian"
)

// MoveRequest moves a set of servos
type MoveRequest struct {
	TimeMs    uint16              `json:"time_ms"`
	Unit      string              `json:"unit"`
	Servos    []model.ServoTarget `json:"servos"`
	WaitReply bool                `json:"wait_reply"`
}

// PowerOffRequest unloads a set of servos
type PowerOffRequest struct {
	IDs       []uint8 `json:"ids"`
	WaitReply bool    `json:"wait_reply"`
}

// RunActionGroupRequest starts a stored action group
type RunActionGroupRequest struct {
	GroupID     uint8  `json:"group_id"`
	Repetitions uint16 `json:"repetitions"`
	Watch       bool   `json:"watch"`
}

// SpeedRequest changes action group playback speed
type SpeedRequest struct {
	GroupID   uint8  `json:"group_id"`
	Speed     uint16 `json:"speed"`
	WaitReply bool   `json:"wait_reply"`
}

// CommandResult identifies the journaled operation of a command
type CommandResult struct {
	OperationID uuid.UUID             `json:"operation_id"`
	Status      model.OperationStatus `json:"status"`
	DurationMs  int                   `json:"duration_ms"`
}

// PositionsResult is the outcome of a position read
type PositionsResult struct {
	CommandResult
	Unit      string            `json:"unit"`
	Positions map[uint8]uint16  `json:"positions,omitempty"`
	Angles    map[uint8]float64 `json:"angles,omitempty"`
	Declared  int               `json:"declared"`
	Requested int               `json:"requested"`
	Partial   bool              `json:"partial"`
	Missing   []int             `json:"missing,omitempty"`
}

// BatteryResult is the outcome of a battery read
type BatteryResult struct {
	CommandResult
	model.BatteryReading
}

// NotificationResult is the outcome of a notification poll
type NotificationResult struct {
	CommandResult
	Notification lsc.Notification `json:"notification"`
}

// PaginationResult describes a page of operations
type PaginationResult struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// OperationListFilter is the page based listing filter used by the API
type OperationListFilter struct {
	OperationType *model.OperationType
	Status        *model.OperationStatus
	Since         *time.Time
	Page          int
	PerPage       int
}

func (f *OperationListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

func (f *OperationListFilter) toModelFilter() *model.OperationFilter {
	return &model.OperationFilter{
		OperationType: f.OperationType,
		Status:        f.Status,
		Since:         f.Since,
		Limit:         f.PerPage,
		Offset:        (f.Page - 1) * f.PerPage,
	}
}
