package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
)

// fakeTx satisfies pgx.Tx for services that only need the tx as a
// Querier handed to repository mocks. Commit and rollback are counted so
// tests can assert atomicity behavior.
type fakeTx struct {
	commits   int
	rollbacks int
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error          { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error        { t.rollbacks++; return nil }

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

// fakeDB satisfies the services DB interface.
type fakeDB struct {
	tx fakeTx
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return &d.tx, nil }
func (d *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

type mockDealRepository struct {
	createFn            func(ctx context.Context, deal *models.Deal) error
	getOwnedFn          func(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error)
	getOwnedForUpdateFn func(ctx context.Context, tx repositories.Querier, dealID, userID uuid.UUID) (*models.Deal, error)
	updateStatusFn      func(ctx context.Context, tx repositories.Querier, dealID uuid.UUID, status models.DealStatus, score *int) error
	insertHistoryFn     func(ctx context.Context, tx repositories.Querier, history *models.DealHistory) error
	insertEvalLogsFn    func(ctx context.Context, tx repositories.Querier, logs []*models.RuleEvaluationLog) error
	listByUserFn        func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error)
	listHistoryFn       func(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error)
}

var _ repositories.DealRepository = (*mockDealRepository)(nil)

func (m *mockDealRepository) Create(ctx context.Context, deal *models.Deal) error {
	return m.createFn(ctx, deal)
}
func (m *mockDealRepository) GetOwned(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error) {
	return m.getOwnedFn(ctx, dealID, userID)
}
func (m *mockDealRepository) GetOwnedForUpdate(ctx context.Context, tx repositories.Querier, dealID, userID uuid.UUID) (*models.Deal, error) {
	return m.getOwnedForUpdateFn(ctx, tx, dealID, userID)
}
func (m *mockDealRepository) UpdateStatus(ctx context.Context, tx repositories.Querier, dealID uuid.UUID, status models.DealStatus, score *int) error {
	return m.updateStatusFn(ctx, tx, dealID, status, score)
}
func (m *mockDealRepository) InsertHistory(ctx context.Context, tx repositories.Querier, history *models.DealHistory) error {
	return m.insertHistoryFn(ctx, tx, history)
}
func (m *mockDealRepository) InsertEvaluationLogs(ctx context.Context, tx repositories.Querier, logs []*models.RuleEvaluationLog) error {
	return m.insertEvalLogsFn(ctx, tx, logs)
}
func (m *mockDealRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
	return m.listByUserFn(ctx, userID, limit, offset)
}
func (m *mockDealRepository) ListHistory(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error) {
	return m.listHistoryFn(ctx, dealID, userID)
}

type mockPropertyRepository struct {
	createFn  func(ctx context.Context, property *models.Property) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

var _ repositories.PropertyRepository = (*mockPropertyRepository)(nil)

func (m *mockPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	return m.createFn(ctx, property)
}
func (m *mockPropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return m.getByIDFn(ctx, id)
}

type mockRuleRepository struct {
	createFn            func(ctx context.Context, rule *models.QualificationRule) error
	listEnabledByUserFn func(ctx context.Context, userID uuid.UUID) ([]*models.QualificationRule, error)
}

var _ repositories.RuleRepository = (*mockRuleRepository)(nil)

func (m *mockRuleRepository) Create(ctx context.Context, rule *models.QualificationRule) error {
	return m.createFn(ctx, rule)
}
func (m *mockRuleRepository) ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]*models.QualificationRule, error) {
	return m.listEnabledByUserFn(ctx, userID)
}

type mockContactLogRepository struct {
	insertFn     func(ctx context.Context, q repositories.Querier, log *models.ContactLog) error
	listByUserFn func(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error)
}

var _ repositories.ContactLogRepository = (*mockContactLogRepository)(nil)

func (m *mockContactLogRepository) Insert(ctx context.Context, q repositories.Querier, log *models.ContactLog) error {
	return m.insertFn(ctx, q, log)
}
func (m *mockContactLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error) {
	return m.listByUserFn(ctx, userID, filters)
}

type mockConsentRepository struct {
	insertFn             func(ctx context.Context, record *models.ConsentRecord) error
	revokeActiveByHashFn func(ctx context.Context, q repositories.Querier, phoneHash, method string, at time.Time) (int, error)
}

var _ repositories.ConsentRepository = (*mockConsentRepository)(nil)

func (m *mockConsentRepository) Insert(ctx context.Context, record *models.ConsentRecord) error {
	return m.insertFn(ctx, record)
}
func (m *mockConsentRepository) RevokeActiveByHash(ctx context.Context, q repositories.Querier, phoneHash, method string, at time.Time) (int, error) {
	return m.revokeActiveByHashFn(ctx, q, phoneHash, method, at)
}

type mockDNCRepository struct {
	findActiveByHashFn func(ctx context.Context, phoneHash string, at time.Time) (*models.DoNotCallEntry, error)
	upsertFn           func(ctx context.Context, q repositories.Querier, entry *models.DoNotCallEntry) error
}

var _ repositories.DNCRepository = (*mockDNCRepository)(nil)

func (m *mockDNCRepository) FindActiveByHash(ctx context.Context, phoneHash string, at time.Time) (*models.DoNotCallEntry, error) {
	return m.findActiveByHashFn(ctx, phoneHash, at)
}
func (m *mockDNCRepository) Upsert(ctx context.Context, q repositories.Querier, entry *models.DoNotCallEntry) error {
	return m.upsertFn(ctx, q, entry)
}

type mockSkipTraceRepository struct {
	enqueueFn       func(ctx context.Context, job *models.SkipTraceJob) error
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*models.SkipTraceJob, error)
	claimNextFn     func(ctx context.Context) (*models.SkipTraceJob, error)
	markCompletedFn func(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error
	markFailedFn    func(ctx context.Context, id uuid.UUID, reason string) error
}

var _ repositories.SkipTraceRepository = (*mockSkipTraceRepository)(nil)

func (m *mockSkipTraceRepository) Enqueue(ctx context.Context, job *models.SkipTraceJob) error {
	return m.enqueueFn(ctx, job)
}
func (m *mockSkipTraceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SkipTraceJob, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockSkipTraceRepository) ClaimNext(ctx context.Context) (*models.SkipTraceJob, error) {
	return m.claimNextFn(ctx)
}
func (m *mockSkipTraceRepository) MarkCompleted(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error {
	return m.markCompletedFn(ctx, id, phoneEncrypted, phoneHash)
}
func (m *mockSkipTraceRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.markFailedFn(ctx, id, reason)
}

// fakeDNCCache is an in-memory dncCache. Sets are counted so tests can
// assert what the service chose to cache.
type fakeDNCCache struct {
	values map[string]string
	getErr error
	sets   int
}

var _ dncCache = (*fakeDNCCache)(nil)

func (c *fakeDNCCache) Get(ctx context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	if v, ok := c.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (c *fakeDNCCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key] = fmt.Sprint(value)
	c.sets++
	return redis.NewStatusResult("OK", nil)
}
