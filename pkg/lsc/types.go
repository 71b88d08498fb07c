// pkg/lsc/types.go
package lsc

// ServoPosition pairs a servo with a board position
type ServoPosition struct {
	ID       uint8  `json:"id"`
	Position uint16 `json:"position"`
}

// ServoAngle pairs a servo with an angle in radians
type ServoAngle struct {
	ID      uint8   `json:"id"`
	Radians float64 `json:"radians"`
}

// PositionReport is the decoded reply to a position read.
type PositionReport struct {
	Positions map[uint8]uint16 `json:"positions"`
	// Declared is the servo count reported by the board
	Declared int `json:"declared"`
	// Requested is the number of ids sent
	Requested int `json:"requested"`
	// Partial is set when the frame ended before Declared groups were read
	Partial bool `json:"partial"`
}

// ActionGroupStatus is carried by running and complete notifications
type ActionGroupStatus struct {
	GroupID     uint8  `json:"group_id"`
	Repetitions uint16 `json:"repetitions"`
}

// NotificationKind classifies a pushed frame
type NotificationKind string

const (
	NotificationRunning  NotificationKind = "RUNNING"
	NotificationStopped  NotificationKind = "STOPPED"
	NotificationComplete NotificationKind = "COMPLETE"
	NotificationUnknown  NotificationKind = "UNKNOWN"
)

// Notification is one frame the board sent without a preceding request
type Notification struct {
	Kind    NotificationKind   `json:"kind"`
	Command byte               `json:"command"`
	Status  *ActionGroupStatus `json:"status,omitempty"`
	Frame   []byte             `json:"frame"`
}
