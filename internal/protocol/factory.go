// internal/protocol/factory.go
package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"servo-service/internal/config"
)

// CreateConnection builds the transport selected by controller.transport
func CreateConnection(cfg *config.ControllerConfig, logger *zap.Logger) (Connection, error) {
	switch cfg.Transport {
	case config.TransportUSB:
		return createUSBConnection(cfg, logger)
	case config.TransportSerial:
		return createSerialConnection(cfg, logger)
	case config.TransportTCP:
		return createTCPConnection(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}

func createUSBConnection(cfg *config.ControllerConfig, logger *zap.Logger) (Connection, error) {
	usb := cfg.USB
	if _, err := parseHexID(usb.VendorID); err != nil {
		return nil, fmt.Errorf("invalid USB vendor_id %q: %w", usb.VendorID, err)
	}
	if _, err := parseHexID(usb.ProductID); err != nil {
		return nil, fmt.Errorf("invalid USB product_id %q: %w", usb.ProductID, err)
	}

	usbConfig := &USBConfig{
		VendorID:    usb.VendorID,
		ProductID:   usb.ProductID,
		Config:      usb.Config,
		Interface:   usb.Interface,
		AltSetting:  usb.AltSetting,
		InEndpoint:  usb.InEndpoint,
		OutEndpoint: usb.OutEndpoint,
		ReportSize:  cfg.ReportSize,
	}
	if usbConfig.Config == 0 {
		usbConfig.Config = 1
	}

	logger.Info("Creating USB transport",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
		zap.Int("interface", usbConfig.Interface),
	)
	return NewUSBConnection(usbConfig, logger), nil
}

func createSerialConnection(cfg *config.ControllerConfig, logger *zap.Logger) (Connection, error) {
	s := cfg.Serial
	if s.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}
	if s.BaudRate != 0 && !validBaudRate(s.BaudRate) {
		return nil, fmt.Errorf("invalid baud rate: %d", s.BaudRate)
	}

	serialConfig := &SerialConfig{
		Port:     s.Port,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity,
	}
	if _, err := serialMode(serialConfig); err != nil {
		return nil, err
	}

	logger.Info("Creating serial transport",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)
	return NewSerialConnection(serialConfig, logger), nil
}

func createTCPConnection(cfg *config.ControllerConfig, logger *zap.Logger) (Connection, error) {
	t := cfg.TCP
	if t.Host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	if t.Port < 1 || t.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", t.Port)
	}

	tcpConfig := &TCPConfig{
		Host:           t.Host,
		Port:           t.Port,
		KeepAlive:      t.KeepAlive,
		ConnectTimeout: t.ConnectTimeout,
		WriteTimeout:   t.WriteTimeout,
	}

	logger.Info("Creating TCP transport",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
	)
	return NewTCPConnection(tcpConfig, logger), nil
}

func validBaudRate(rate int) bool {
	switch rate {
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		return true
	}
	return false
}
