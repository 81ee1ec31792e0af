package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ObjectStore stores archived proofs and links to them.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ProofFailure describes a proof that could not be attached to its order.
type ProofFailure struct {
	Order    models.CreatedOrder
	OwnerKey string
	File     models.ProofFile
	Cause    error
}

// ProofRecorder keeps failed proofs for later re-submission.
type ProofRecorder interface {
	Record(ctx context.Context, failure ProofFailure)
}

// ProofFailureView is a pending failure with a download link to the archived file.
type ProofFailureView struct {
	models.ProofUploadFailure
	DownloadURL string `json:"download_url,omitempty"`
}

type ProofFailureList struct {
	Failures []ProofFailureView `json:"failures"`
	Meta     MetaData           `json:"meta"`
}

type MetaData struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// ProofRecovery archives failed proofs to S3, records them in Postgres and
// queues a recovery job. Every step is best-effort and independent.
type ProofRecovery struct {
	store   ObjectStore
	bucket  string
	linkTTL time.Duration
	repo    repository.ProofFailureRepository
	queue   aws_pkg.QueueSender
	events  eventPublisher
	metrics MetricsRecorder
	logger  *zap.Logger
}

func NewProofRecovery(
	store ObjectStore,
	bucket string,
	linkTTL time.Duration,
	repo repository.ProofFailureRepository,
	queue aws_pkg.QueueSender,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *ProofRecovery {
	return &ProofRecovery{
		store:   store,
		bucket:  bucket,
		linkTTL: linkTTL,
		repo:    repo,
		queue:   queue,
		events:  eventPublisher{snsClient: snsClient, snsTopicArn: snsTopicArn, logger: logger},
		metrics: metrics,
		logger:  logger,
	}
}

// Record keeps a failed proof. It never returns an error: the order already
// exists and nothing here may undo it.
func (r *ProofRecovery) Record(ctx context.Context, f ProofFailure) {
	reason := "unknown error"
	if f.Cause != nil {
		reason = f.Cause.Error()
	}

	objectKey := ""
	if r.store != nil && r.bucket != "" {
		key := ArchiveKey(f.Order.ID, f.File.Name)
		if err := r.store.PutObject(ctx, r.bucket, key, bytes.NewReader(f.File.Data), f.File.ContentType); err != nil {
			r.logger.Error("Failed to archive payment proof", zap.String("order_id", f.Order.ID), zap.Error(err))
		} else {
			objectKey = key
		}
	}

	record := &models.ProofUploadFailure{
		OrderID:     f.Order.ID,
		OrderNumber: f.Order.OrderNumber,
		OwnerKey:    f.OwnerKey,
		FileName:    f.File.Name,
		ContentType: f.File.ContentType,
		Size:        f.File.Size(),
		ObjectKey:   objectKey,
		Reason:      reason,
		Status:      models.ProofFailureStatusPending,
	}
	if r.repo != nil {
		if err := r.repo.Create(ctx, record); err != nil {
			r.logger.Error("Failed to record proof upload failure", zap.String("order_id", f.Order.ID), zap.Error(err))
		}
	}

	failureID := ""
	if record.ID != uuid.Nil {
		failureID = record.ID.String()
	}

	if r.queue != nil && objectKey != "" {
		job, _ := json.Marshal(models.ProofRecoveryJob{
			FailureID:   failureID,
			OrderID:     f.Order.ID,
			Bucket:      r.bucket,
			ObjectKey:   objectKey,
			FileName:    f.File.Name,
			ContentType: f.File.ContentType,
		})
		if err := r.queue.SendMessage(ctx, string(job)); err != nil {
			r.logger.Error("Failed to queue proof recovery job", zap.String("order_id", f.Order.ID), zap.Error(err))
		}
	}

	r.events.publish(ctx, models.ProofUploadFailedEvent{
		EventType:   models.EventProofUploadFailed,
		FailureID:   failureID,
		OrderID:     f.Order.ID,
		OrderNumber: f.Order.OrderNumber,
		OwnerKey:    f.OwnerKey,
		ObjectKey:   objectKey,
		Reason:      reason,
		Timestamp:   time.Now(),
	})

	recordMetrics(r.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricProofUploadFailed, nil)
	})
}

// ListPending returns unresolved failures, newest first.
func (r *ProofRecovery) ListPending(ctx context.Context, page, limit int) (*ProofFailureList, *ServiceError) {
	if r.repo == nil {
		return nil, &ServiceError{StatusCode: 503, Message: "Proof recovery storage is not configured"}
	}

	failures, total, err := r.repo.FindByStatus(ctx, models.ProofFailureStatusPending, page, limit)
	if err != nil {
		r.logger.Error("Failed to list proof failures", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list proof failures"}
	}

	views := make([]ProofFailureView, 0, len(failures))
	for _, f := range failures {
		view := ProofFailureView{ProofUploadFailure: f}
		if f.ObjectKey != "" && r.store != nil {
			url, err := r.store.PresignGetURL(ctx, r.bucket, f.ObjectKey, r.linkTTL)
			if err != nil {
				r.logger.Warn("Failed to presign proof download", zap.String("id", f.ID.String()), zap.Error(err))
			} else {
				view.DownloadURL = url
			}
		}
		views = append(views, view)
	}

	return &ProofFailureList{
		Failures: views,
		Meta: MetaData{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: calculateTotalPages(total, limit),
			HasMore:    total > int64(page*limit),
		},
	}, nil
}

// Resolve marks a failure as handled.
func (r *ProofRecovery) Resolve(ctx context.Context, id uuid.UUID) (*models.ProofUploadFailure, *ServiceError) {
	if r.repo == nil {
		return nil, &ServiceError{StatusCode: 503, Message: "Proof recovery storage is not configured"}
	}

	failure, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Proof failure not found"}
		}
		r.logger.Error("Failed to load proof failure", zap.String("id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load proof failure"}
	}
	if failure.Status == models.ProofFailureStatusResolved {
		return failure, nil
	}

	now := time.Now()
	failure.Status = models.ProofFailureStatusResolved
	failure.ResolvedAt = &now
	if err := r.repo.Update(ctx, failure); err != nil {
		r.logger.Error("Failed to resolve proof failure", zap.String("id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to resolve proof failure"}
	}
	return failure, nil
}

// ArchiveKey builds the S3 key of an archived proof.
func ArchiveKey(orderID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "proof"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("payment-proofs/pending/%s/%s-%s", orderID, uuid.NewString(), name)
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
