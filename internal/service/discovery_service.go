// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"servo-service/internal/discovery"
	"servo-service/internal/utils"
)

const defaultScanTimeout = 10 * time.Second

// DiscoveryService finds links a controller board may be attached to
type DiscoveryService struct {
	manager *discovery.Manager
	logger  *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the USB and serial
// scanners registered for the given board IDs
func NewDiscoveryService(vendorID, productID uint16, logger *zap.Logger) *DiscoveryService {
	manager := discovery.NewManager(logger.With(zap.String("component", "discovery")))
	manager.RegisterScanner(discovery.NewUSBScanner(vendorID, productID, logger))
	manager.RegisterScanner(discovery.NewSerialScanner(vendorID, productID, logger))

	return NewDiscoveryServiceWithManager(manager, logger)
}

// NewDiscoveryServiceWithManager wraps a preconfigured manager
func NewDiscoveryServiceWithManager(manager *discovery.Manager, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		manager: manager,
		logger:  utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// ScanRequest selects scanners for a discovery run
type ScanRequest struct {
	ScannerType string        `json:"scanner_type"`
	Timeout     time.Duration `json:"timeout"`
}

// Scan runs one scanner, or all of them when ScannerType is empty
func (ds *DiscoveryService) Scan(ctx context.Context, req *ScanRequest) ([]*discovery.Candidate, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var (
		candidates []*discovery.Candidate
		err        error
	)
	if req.ScannerType == "" {
		candidates, err = ds.manager.ScanAll(scanCtx)
	} else {
		candidates, err = ds.manager.ScanByType(scanCtx, req.ScannerType)
	}
	if errors.Is(err, discovery.ErrScannerUnavailable) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err != nil {
		return nil, fmt.Errorf("controller discovery failed: %w", err)
	}

	ds.logger.Info("Controller discovery completed",
		zap.String("scanner_type", req.ScannerType),
		zap.Int("candidates_found", len(candidates)),
		zap.Duration("duration", time.Since(start)),
	)
	if candidates == nil {
		candidates = []*discovery.Candidate{}
	}
	return candidates, nil
}

// AvailableScanners lists scanners usable on this host
func (ds *DiscoveryService) AvailableScanners() []string {
	return ds.manager.GetAvailableScanners()
}
