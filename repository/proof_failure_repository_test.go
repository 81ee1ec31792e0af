package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

var proofFailureColumns = []string{"id", "order_id", "order_number", "owner_key", "file_name", "content_type", "size", "object_key", "reason", "status", "created_at", "updated_at"}

func TestProofFailureCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProofFailureRepository(gormDB)

	failure := &models.ProofUploadFailure{
		ID:       uuid.New(),
		OrderID:  "o-1",
		OwnerKey: "user:u-1",
		FileName: "receipt.png",
		Reason:   "timeout",
		Status:   models.ProofFailureStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "proof_upload_failures"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(failure.ID))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), failure)
	assert.NoError(t, err)
}

func TestProofFailureFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProofFailureRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "proof_upload_failures"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	f, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, f)
}

func TestProofFailureFindByStatus(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProofFailureRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "proof_upload_failures"`)).
		WithArgs(models.ProofFailureStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "proof_upload_failures"`)).
		WillReturnRows(sqlmock.NewRows(proofFailureColumns).
			AddRow(uuid.New(), "o-2", "ORD-2", "user:u-1", "b.pdf", "application/pdf", 10, "k2", "timeout", "pending", now, now).
			AddRow(uuid.New(), "o-1", "ORD-1", "guest:g-1", "a.png", "image/png", 20, "", "refused", "pending", now, now))

	failures, total, err := repo.FindByStatus(context.Background(), models.ProofFailureStatusPending, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, failures, 2)
	assert.Equal(t, "o-2", failures[0].OrderID)
	assert.Equal(t, "k2", failures[0].ObjectKey)
}

func TestProofFailureUpdate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProofFailureRepository(gormDB)

	now := time.Now()
	failure := &models.ProofUploadFailure{
		ID:         uuid.New(),
		OrderID:    "o-1",
		Status:     models.ProofFailureStatusResolved,
		ResolvedAt: &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "proof_upload_failures"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), failure)
	assert.NoError(t, err)
}
