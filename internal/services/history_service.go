package services

import (
	"errors"
	"fmt"

	"github.com/themizzi/uiverify/internal/models"
)

// History limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// ErrHistoryDisabled is returned when no run repository is configured
var ErrHistoryDisabled = errors.New("run history is not configured")

// HistoryService reads recorded runs
type HistoryService interface {
	RecentRuns(limit int) ([]*models.Run, error)
}

// HistoryServiceImpl implements HistoryService
type HistoryServiceImpl struct {
	runRepo RunRepository
}

// NewHistoryService creates a history service. A nil repository yields a
// service that reports ErrHistoryDisabled.
func NewHistoryService(runRepo RunRepository) HistoryService {
	return &HistoryServiceImpl{
		runRepo: runRepo,
	}
}

// RecentRuns returns the newest runs first. Non-positive limits use the default.
func (s *HistoryServiceImpl) RecentRuns(limit int) ([]*models.Run, error) {
	if s.runRepo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	runs, err := s.runRepo.ListRecentRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
