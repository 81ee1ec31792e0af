package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProofState is the lifecycle tag of a staged payment proof.
type ProofState string

const (
	ProofEmpty        ProofState = "empty"
	ProofFileSelected ProofState = "file_selected"
	ProofReadied      ProofState = "readied"
)

func (s ProofState) String() string { return string(s) }

// ProofFile is a payment proof held in memory until its order exists.
type ProofFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f ProofFile) Size() int64 { return int64(len(f.Data)) }

// StagedProof is a read-only snapshot of the proof stager.
type StagedProof struct {
	State       ProofState `json:"state"`
	FileName    string     `json:"fileName,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Size        int64      `json:"size,omitempty"`
	Preview     string     `json:"preview,omitempty"`
}

func (p StagedProof) Readied() bool { return p.State == ProofReadied }

// Proof failure statuses.
const (
	ProofFailureStatusPending  = "pending"
	ProofFailureStatusResolved = "resolved"
)

// ProofUploadFailure records a proof that could not be attached to its order
// so it can be re-submitted later.
type ProofUploadFailure struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     string         `gorm:"type:varchar(128);not null;index" json:"order_id"`
	OrderNumber string         `gorm:"type:varchar(128)" json:"order_number"`
	OwnerKey    string         `gorm:"type:varchar(160);not null;index" json:"owner_key"`
	FileName    string         `gorm:"type:varchar(255)" json:"file_name"`
	ContentType string         `gorm:"type:varchar(128)" json:"content_type"`
	Size        int64          `json:"size"`
	ObjectKey   string         `gorm:"type:varchar(1024)" json:"object_key"`
	Reason      string         `gorm:"type:text" json:"reason"`
	Status      string         `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
