package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"checkout-service/models"
)

var (
	ErrNoProofSelected = errors.New("select a payment proof file first")
	ErrProofLocked     = errors.New("payment proof is already confirmed, remove it before choosing another file")
	ErrEmptyProofFile  = errors.New("payment proof file is empty")
)

// ProofUploadFunc attaches a proof to an existing order.
type ProofUploadFunc func(ctx context.Context, orderID string, file models.ProofFile) error

// ProofStager holds at most one payment proof until the order it belongs to
// has been created.
//
//	empty -> file_selected -> readied -> (consume) -> empty
//	any   -> (remove) -> empty
type ProofStager struct {
	mu      sync.Mutex
	state   models.ProofState
	file    *models.ProofFile
	preview string
}

func NewProofStager() *ProofStager {
	return &ProofStager{state: models.ProofEmpty}
}

// SelectFile stages file, replacing any pending one. A readied proof must be
// removed first.
func (s *ProofStager) SelectFile(file models.ProofFile) error {
	if len(file.Data) == 0 {
		return ErrEmptyProofFile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.ProofReadied {
		return ErrProofLocked
	}
	f := file
	s.file = &f
	s.preview = previewFor(file)
	s.state = models.ProofFileSelected
	return nil
}

// Confirm readies the selected file for upload. It does not upload.
func (s *ProofStager) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case models.ProofFileSelected:
		s.state = models.ProofReadied
		return nil
	case models.ProofReadied:
		return nil
	default:
		return ErrNoProofSelected
	}
}

// Consume hands the readied file to upload exactly once. The stager is empty
// before upload runs, so a failed upload is not retried from here and a
// second call is a no-op returning false.
func (s *ProofStager) Consume(ctx context.Context, orderID string, upload ProofUploadFunc) (bool, error) {
	s.mu.Lock()
	if s.state != models.ProofReadied || s.file == nil {
		s.mu.Unlock()
		return false, nil
	}
	file := *s.file
	s.reset()
	s.mu.Unlock()

	return true, upload(ctx, orderID, file)
}

// Remove discards whatever is staged.
func (s *ProofStager) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *ProofStager) Snapshot() models.StagedProof {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.StagedProof{State: s.state}
	if s.file != nil {
		snap.FileName = s.file.Name
		snap.ContentType = s.file.ContentType
		snap.Size = s.file.Size()
		snap.Preview = s.preview
	}
	return snap
}

func (s *ProofStager) reset() {
	s.state = models.ProofEmpty
	s.file = nil
	s.preview = ""
}

// previewFor renders images inline and marks other files by name.
func previewFor(file models.ProofFile) string {
	if strings.HasPrefix(file.ContentType, "image/") {
		return "data:" + file.ContentType + ";base64," + base64.StdEncoding.EncodeToString(file.Data)
	}
	return "file:" + file.Name
}
