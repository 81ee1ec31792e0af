package models

import "time"

// CheckoutCompletedEvent is published to SNS after an order is created.
type CheckoutCompletedEvent struct {
	EventType     string        `json:"event_type"`
	SessionID     string        `json:"session_id"`
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	OwnerKey      string        `json:"owner_key"`
	Guest         bool          `json:"guest"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ItemCount     int           `json:"item_count"`
	TotalPrice    float64       `json:"total_price"`
	ProofUploaded bool          `json:"proof_uploaded"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ProofUploadFailedEvent is published to SNS when a proof could not be attached.
type ProofUploadFailedEvent struct {
	EventType   string    `json:"event_type"`
	FailureID   string    `json:"failure_id,omitempty"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OwnerKey    string    `json:"owner_key"`
	ObjectKey   string    `json:"object_key,omitempty"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProofRecoveryJob is queued on SQS for the re-submission worker.
type ProofRecoveryJob struct {
	FailureID   string `json:"failure_id,omitempty"`
	OrderID     string `json:"order_id"`
	Bucket      string `json:"bucket"`
	ObjectKey   string `json:"object_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

const (
	EventCheckoutCompleted = "checkout_completed"
	EventProofUploadFailed = "payment_proof_upload_failed"
)
