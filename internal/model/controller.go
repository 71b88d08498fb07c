// internal/model/controller.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

// Scan implements sql.Scanner
func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONObject", value)
	}
	return json.Unmarshal(raw, j)
}

// Value implements driver.Valuer
func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ToJSONObject round-trips v through JSON into a JSONObject
func ToJSONObject(v interface{}) JSONObject {
	raw, err := json.Marshal(v)
	if err != nil {
		return JSONObject{"marshal_error": err.Error()}
	}
	var obj JSONObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return JSONObject{"value": v}
	}
	return obj
}

// ControllerStatus describes the link to the servo controller board
type ControllerStatus struct {
	Connected     bool            `json:"connected"`
	Transport     string          `json:"transport"`
	ReadTimeout   time.Duration   `json:"read_timeout"`
	BytesWritten  int64           `json:"bytes_written"`
	BytesRead     int64           `json:"bytes_read"`
	LinkErrors    int64           `json:"link_errors"`
	LastActivity  time.Time       `json:"last_activity"`
	WatchingGroup *uint8          `json:"watching_group,omitempty"`
	LastBattery   *BatteryReading `json:"last_battery,omitempty"`
}

var millivoltsPerVolt = decimal.NewFromInt(1000)

// BatteryReading is a supply voltage sample
type BatteryReading struct {
	Millivolts uint16          `json:"millivolts"`
	Volts      decimal.Decimal `json:"volts"`
	ReadAt     time.Time       `json:"read_at"`
}

// NewBatteryReading converts millivolts to an exact volt value
func NewBatteryReading(millivolts uint16, at time.Time) BatteryReading {
	return BatteryReading{
		Millivolts: millivolts,
		Volts:      decimal.NewFromInt(int64(millivolts)).Div(millivoltsPerVolt),
		ReadAt:     at,
	}
}
