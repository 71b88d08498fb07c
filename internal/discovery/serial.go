// internal/discovery/serial.go
package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// SerialScanner lists serial ports. USB serial adapters rank above plain UARTs
// and a port whose IDs match the board ranks highest.
type SerialScanner struct {
	vendorID  uint16
	productID uint16
	logger    *zap.Logger
	list      func() ([]*enumerator.PortDetails, error)
}

// NewSerialScanner creates a serial port scanner
func NewSerialScanner(vendorID, productID uint16, logger *zap.Logger) *SerialScanner {
	return &SerialScanner{
		vendorID:  vendorID,
		productID: productID,
		logger:    logger.With(zap.String("scanner", "serial")),
		list:      enumerator.GetDetailedPortsList,
	}
}

// GetScannerType returns scanner type identifier
func (s *SerialScanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *SerialScanner) IsAvailable() bool {
	return true
}

// Scan lists serial ports
func (s *SerialScanner) Scan(ctx context.Context) ([]*Candidate, error) {
	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	candidates := make([]*Candidate, 0, len(ports))
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return candidates, err
		}
		candidates = append(candidates, s.classify(port))
	}

	s.logger.Debug("Serial scan completed", zap.Int("ports_found", len(candidates)))
	return candidates, nil
}

func (s *SerialScanner) classify(port *enumerator.PortDetails) *Candidate {
	c := &Candidate{
		Transport:   "serial",
		Port:        port.Name,
		Description: port.Product,
		Confidence:  0.1,
	}
	if !port.IsUSB {
		return c
	}

	c.VendorID = normalizeID(port.VID)
	c.ProductID = normalizeID(port.PID)
	c.SerialNumber = port.SerialNumber
	c.Confidence = 0.5

	vid, vidErr := strconv.ParseUint(port.VID, 16, 16)
	pid, pidErr := strconv.ParseUint(port.PID, 16, 16)
	if vidErr == nil && pidErr == nil && uint16(vid) == s.vendorID && uint16(pid) == s.productID {
		c.Confidence = 1.0
	}
	return c
}

// normalizeID turns "0483" into "0x0483"
func normalizeID(id string) string {
	if id == "" {
		return ""
	}
	return "0x" + strings.ToUpper(strings.TrimPrefix(strings.ToLower(id), "0x"))
}
