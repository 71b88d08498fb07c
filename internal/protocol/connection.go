// internal/protocol/connection.go
package protocol

import "time"

// USBConfig represents the HID interrupt endpoints of the board
type USBConfig struct {
	VendorID    string `json:"vendor_id"`
	ProductID   string `json:"product_id"`
	Config      int    `json:"config"`
	Interface   int    `json:"interface"`
	AltSetting  int    `json:"alt_setting"`
	InEndpoint  int    `json:"in_endpoint"`
	OutEndpoint int    `json:"out_endpoint"`
	ReportSize  int    `json:"report_size"`
}

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	ByteGap  time.Duration `json:"byte_gap"`
}

// TCPConfig represents a serial-over-TCP bridge
type TCPConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	KeepAlive      bool          `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	ByteGap        time.Duration `json:"byte_gap"`
}

// defaultByteGap ends a read once the line has been idle this long
const defaultByteGap = 10 * time.Millisecond

// fallbackReadWait applies when a read context carries no deadline
const fallbackReadWait = time.Second
