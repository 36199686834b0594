package skiptrace

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/crypto"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

type mockJobs struct {
	claimNextFn     func(ctx context.Context) (*models.SkipTraceJob, error)
	markCompletedFn func(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error
	markFailedFn    func(ctx context.Context, id uuid.UUID, reason string) error
}

func (m *mockJobs) Enqueue(ctx context.Context, job *models.SkipTraceJob) error { return nil }
func (m *mockJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.SkipTraceJob, error) {
	return nil, nil
}
func (m *mockJobs) ClaimNext(ctx context.Context) (*models.SkipTraceJob, error) {
	return m.claimNextFn(ctx)
}
func (m *mockJobs) MarkCompleted(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error {
	return m.markCompletedFn(ctx, id, phoneEncrypted, phoneHash)
}
func (m *mockJobs) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.markFailedFn(ctx, id, reason)
}

type mockProvider struct {
	lookupFn func(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error)
}

func (m *mockProvider) Lookup(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error) {
	return m.lookupFn(ctx, job)
}

func newTestProtector(t *testing.T) *crypto.PhoneProtector {
	t.Helper()
	p, err := crypto.NewPhoneProtector("test-encryption-key", "test-hash-key")
	require.NoError(t, err)
	return p
}

func TestRunOnce_EmptyQueue(t *testing.T) {
	jobs := &mockJobs{
		claimNextFn: func(ctx context.Context) (*models.SkipTraceJob, error) { return nil, nil },
	}
	runner := NewRunner(jobs, nil, newTestProtector(t), zap.NewNop())

	processed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRunOnce_PhoneFoundStoredProtected(t *testing.T) {
	jobID := uuid.New()
	protector := newTestProtector(t)

	var storedEncrypted, storedHash *string
	jobs := &mockJobs{
		claimNextFn: func(ctx context.Context) (*models.SkipTraceJob, error) {
			return &models.SkipTraceJob{ID: jobID, AddressLine1: "12 Oak St"}, nil
		},
		markCompletedFn: func(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error {
			assert.Equal(t, jobID, id)
			storedEncrypted, storedHash = phoneEncrypted, phoneHash
			return nil
		},
	}
	provider := &mockProvider{
		lookupFn: func(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error) {
			return &LookupResult{Phone: "+1 (555) 123-4567", Found: true}, nil
		},
	}
	runner := NewRunner(jobs, provider, protector, zap.NewNop())

	processed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	require.NotNil(t, storedEncrypted)
	require.NotNil(t, storedHash)
	assert.NotContains(t, *storedEncrypted, "5551234567")
	assert.Equal(t, protector.Hash("5551234567"), *storedHash)

	// Ciphertext must round-trip with the same key.
	plain, err := protector.Decrypt(*storedEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "+1 (555) 123-4567", plain)
}

func TestRunOnce_NoPhoneCompletesEmpty(t *testing.T) {
	completed := false
	jobs := &mockJobs{
		claimNextFn: func(ctx context.Context) (*models.SkipTraceJob, error) {
			return &models.SkipTraceJob{ID: uuid.New(), AddressLine1: "12 Oak St"}, nil
		},
		markCompletedFn: func(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error {
			completed = true
			assert.Nil(t, phoneEncrypted)
			assert.Nil(t, phoneHash)
			return nil
		},
	}
	provider := &mockProvider{
		lookupFn: func(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error) {
			return &LookupResult{Found: false}, nil
		},
	}
	runner := NewRunner(jobs, provider, newTestProtector(t), zap.NewNop())

	_, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestRunOnce_LookupFailureMarksFailed(t *testing.T) {
	var failureReason string
	jobs := &mockJobs{
		claimNextFn: func(ctx context.Context) (*models.SkipTraceJob, error) {
			return &models.SkipTraceJob{ID: uuid.New(), AddressLine1: "12 Oak St"}, nil
		},
		markFailedFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			failureReason = reason
			return nil
		},
	}
	provider := &mockProvider{
		lookupFn: func(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error) {
			return nil, errors.New("provider returned HTTP 400")
		},
	}
	runner := NewRunner(jobs, provider, newTestProtector(t), zap.NewNop())

	processed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Contains(t, failureReason, "HTTP 400")
}
