// internal/discovery/usb.go
package discovery

import (
	"context"
	"fmt"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// USBScanner lists USB devices whose IDs match the controller board.
// Devices are only enumerated, never opened.
type USBScanner struct {
	vendorID  gousb.ID
	productID gousb.ID
	logger    *zap.Logger
}

// NewUSBScanner creates a scanner for the given vendor and product IDs
func NewUSBScanner(vendorID, productID uint16, logger *zap.Logger) *USBScanner {
	return &USBScanner{
		vendorID:  gousb.ID(vendorID),
		productID: gousb.ID(productID),
		logger:    logger.With(zap.String("scanner", "usb")),
	}
}

// GetScannerType returns scanner type identifier
func (s *USBScanner) GetScannerType() string {
	return "usb"
}

// IsAvailable reports whether libusb can be initialised. gousb panics when
// it cannot.
func (s *USBScanner) IsAvailable() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("libusb unavailable", zap.Any("reason", r))
			ok = false
		}
	}()
	gousb.NewContext().Close()
	return true
}

// Scan enumerates the bus
func (s *USBScanner) Scan(ctx context.Context) ([]*Candidate, error) {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var candidates []*Candidate
	_, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		if c := s.classify(desc); c != nil {
			candidates = append(candidates, c)
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return candidates, err
	}

	s.logger.Debug("USB scan completed", zap.Int("candidates_found", len(candidates)))
	return candidates, nil
}

func (s *USBScanner) classify(desc *gousb.DeviceDesc) *Candidate {
	return usbCandidate(desc.Vendor, desc.Product, desc.Class, desc.Bus, desc.Address, s.vendorID, s.productID)
}

// usbCandidate scores one device: exact ID match, same vendor HID, or nothing
func usbCandidate(vendor, product gousb.ID, class gousb.Class, bus, address int, wantVendor, wantProduct gousb.ID) *Candidate {
	var confidence float64
	switch {
	case vendor == wantVendor && product == wantProduct:
		confidence = 1.0
	case vendor == wantVendor && (class == gousb.ClassHID || class == gousb.ClassPerInterface):
		confidence = 0.3
	default:
		return nil
	}

	return &Candidate{
		Transport:   "usb",
		VendorID:    formatID(uint16(vendor)),
		ProductID:   formatID(uint16(product)),
		Location:    fmt.Sprintf("bus %d address %d", bus, address),
		Description: class.String(),
		Confidence:  confidence,
	}
}

func formatID(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}
