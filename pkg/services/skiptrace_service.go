package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
)

// SkipTraceService is the queue facade the HTTP surface talks to: it
// enqueues owner-phone lookups and reads their status. Execution belongs
// to the runner in pkg/skiptrace.
type SkipTraceService interface {
	Enqueue(ctx context.Context, propertyID uuid.UUID, addressLine1, city, state, postalCode string) (*models.SkipTraceJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*models.SkipTraceJob, error)
}

type skipTraceService struct {
	jobs       repositories.SkipTraceRepository
	properties repositories.PropertyRepository
	logger     *zap.Logger
}

// NewSkipTraceService creates a new SkipTraceService.
func NewSkipTraceService(jobs repositories.SkipTraceRepository, properties repositories.PropertyRepository, logger *zap.Logger) SkipTraceService {
	return &skipTraceService{
		jobs:       jobs,
		properties: properties,
		logger:     logger.Named("skip-trace-service"),
	}
}

var _ SkipTraceService = (*skipTraceService)(nil)

func (s *skipTraceService) Enqueue(ctx context.Context, propertyID uuid.UUID, addressLine1, city, state, postalCode string) (*models.SkipTraceJob, error) {
	if strings.TrimSpace(addressLine1) == "" {
		return nil, apperrors.NewValidation("address_line1", "street address is required")
	}
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}

	job := &models.SkipTraceJob{
		PropertyID:   propertyID,
		AddressLine1: strings.TrimSpace(addressLine1),
		City:         strings.TrimSpace(city),
		State:        strings.TrimSpace(state),
		PostalCode:   strings.TrimSpace(postalCode),
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("skip trace job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("property_id", propertyID.String()))
	return job, nil
}

func (s *skipTraceService) Get(ctx context.Context, jobID uuid.UUID) (*models.SkipTraceJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}
