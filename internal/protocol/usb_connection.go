// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// USBConnection talks to the board through its HID interrupt endpoints
type USBConnection struct {
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	usbCfg   *gousb.Config
	intf     *gousb.Interface
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	stats    statsRecorder
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) *USBConnection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
	}
}

// Open claims the HID interface of the first matching device
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	uc.ctx = gousb.NewContext()

	device, err := uc.findAndOpenDevice(vendorID, productID)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to find USB device: %w", err)
	}
	uc.device = device

	// The kernel HID driver usually owns the interface
	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Failed to enable kernel driver auto-detach", zap.Error(err))
	}

	usbCfg, err := device.Config(uc.config.Config)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to select configuration %d: %w", uc.config.Config, err)
	}
	uc.usbCfg = usbCfg

	intf, err := usbCfg.Interface(uc.config.Interface, uc.config.AltSetting)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to claim interface: %w", err)
	}
	uc.intf = intf

	outEndpt, err := intf.OutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}
	inEndpt, err := intf.InEndpoint(uc.config.InEndpoint)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to get in endpoint: %w", err)
	}

	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt
	uc.isOpen = true
	uc.stats.setConnected(true)

	uc.logger.Info("USB connection opened",
		zap.Int("interface", uc.config.Interface),
		zap.Int("in_packet_size", inEndpt.Desc.MaxPacketSize),
		zap.Int("out_packet_size", outEndpt.Desc.MaxPacketSize),
	)
	return nil
}

// Close releases the interface, device and libusb context
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	uc.release()
	uc.isOpen = false
	uc.stats.setConnected(false)

	uc.logger.Info("USB connection closed")
	return nil
}

// release closes whatever Open managed to acquire, innermost first
func (uc *USBConnection) release() {
	if uc.intf != nil {
		uc.intf.Close()
		uc.intf = nil
	}
	if uc.usbCfg != nil {
		uc.usbCfg.Close()
		uc.usbCfg = nil
	}
	if uc.device != nil {
		uc.device.Close()
		uc.device = nil
	}
	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}
	uc.outEndpt = nil
	uc.inEndpt = nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.outEndpt != nil && uc.inEndpt != nil
}

// Write sends data as one output report, zero padded to the report size
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return fmt.Errorf("USB connection not open")
	}

	report, err := padReport(data, uc.reportSize(uc.outEndpt.Desc.MaxPacketSize))
	if err != nil {
		uc.stats.recordError()
		return err
	}

	startTime := time.Now()
	n, err := uc.outEndpt.WriteContext(ctx, report)
	if err != nil {
		uc.stats.recordError()
		uc.logger.Error("USB write failed", zap.Error(err))
		return fmt.Errorf("failed to write to USB device: %w", err)
	}
	if n < len(data) {
		uc.stats.recordError()
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	uc.stats.recordWrite(len(data), time.Since(startTime))
	uc.logger.Debug("USB write completed", zap.Int("bytes", len(data)))
	return nil
}

// Read waits for one input report until ctx is done
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.inEndpt == nil {
		return nil, fmt.Errorf("USB connection not open")
	}

	// libusb rejects interrupt reads smaller than one packet
	size := maxBytes
	if packet := uc.inEndpt.Desc.MaxPacketSize; size < packet {
		size = packet
	}
	buffer := make([]byte, size)

	n, err := uc.inEndpt.ReadContext(ctx, buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.stats.recordError()
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}
	if n > maxBytes {
		n = maxBytes
	}

	uc.stats.recordRead(n)
	return buffer[:n], nil
}

// Kind returns the transport name
func (uc *USBConnection) Kind() string {
	return "usb"
}

// Stats returns a snapshot of link counters
func (uc *USBConnection) Stats() ProtocolStats {
	return uc.stats.snapshot()
}

func (uc *USBConnection) reportSize(packetSize int) int {
	if uc.config.ReportSize > 0 {
		return uc.config.ReportSize
	}
	return packetSize
}

// findAndOpenDevice opens the first device with the given IDs
func (uc *USBConnection) findAndOpenDevice(vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := uc.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("USB device not found (VID: %04X, PID: %04X)", uint16(vendorID), uint16(productID))
	}

	for _, extra := range devices[1:] {
		extra.Close()
	}
	if len(devices) > 1 {
		uc.logger.Warn("Multiple matching USB devices found, using first one", zap.Int("count", len(devices)))
	}

	return devices[0], nil
}

// parseHexID parses "0x0483" or "0483"
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hexStr)), "0x")
	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// padReport zero pads data to size; data longer than one report is an error
func padReport(data []byte, size int) ([]byte, error) {
	if len(data) > size {
		return nil, fmt.Errorf("write of %d bytes exceeds %d byte report", len(data), size)
	}
	if len(data) == size {
		return data, nil
	}
	report := make([]byte, size)
	copy(report, data)
	return report, nil
}
