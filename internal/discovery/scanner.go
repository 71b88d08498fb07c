// internal/discovery/scanner.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ErrScannerUnavailable is returned for unknown or unusable scanner types
var ErrScannerUnavailable = errors.New("scanner unavailable")

// Scanner finds links that may lead to a servo controller board
type Scanner interface {
	Scan(ctx context.Context) ([]*Candidate, error)
	GetScannerType() string
	IsAvailable() bool
}

// Candidate is one link a controller may be attached to
type Candidate struct {
	Transport    string  `json:"transport"`
	Port         string  `json:"port,omitempty"`
	VendorID     string  `json:"vendor_id,omitempty"`
	ProductID    string  `json:"product_id,omitempty"`
	SerialNumber string  `json:"serial_number,omitempty"`
	Description  string  `json:"description,omitempty"`
	Location     string  `json:"location,omitempty"`
	Confidence   float64 `json:"confidence"` // 0.0-1.0
}

// Manager runs registered scanners
type Manager struct {
	scanners map[string]Scanner
	logger   *zap.Logger
}

// NewManager creates a new scanner manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		scanners: make(map[string]Scanner),
		logger:   logger,
	}
}

// RegisterScanner registers a scanner under its type
func (m *Manager) RegisterScanner(scanner Scanner) {
	scannerType := scanner.GetScannerType()
	m.scanners[scannerType] = scanner
	m.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner; failures are logged and skipped.
// Candidates are ordered by confidence, highest first.
func (m *Manager) ScanAll(ctx context.Context) ([]*Candidate, error) {
	var all []*Candidate

	for scannerType, scanner := range m.scanners {
		if !scanner.IsAvailable() {
			m.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		candidates, err := scanner.Scan(ctx)
		if err != nil {
			m.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		all = append(all, candidates...)
		m.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("candidates_found", len(candidates)),
		)
	}

	sortCandidates(all)
	return all, nil
}

// ScanByType runs one scanner
func (m *Manager) ScanByType(ctx context.Context, scannerType string) ([]*Candidate, error) {
	scanner, exists := m.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("%w: unknown type %s", ErrScannerUnavailable, scannerType)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("%w: %s", ErrScannerUnavailable, scannerType)
	}

	candidates, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)
	return candidates, nil
}

// GetAvailableScanners returns the available scanner types, sorted
func (m *Manager) GetAvailableScanners() []string {
	available := []string{}
	for scannerType, scanner := range m.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	sort.Strings(available)
	return available
}

func sortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
}
