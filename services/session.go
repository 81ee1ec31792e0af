package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
)

// CheckoutState is the submission state of a checkout session.
type CheckoutState string

const (
	StateIdle       CheckoutState = "idle"
	StateValidating CheckoutState = "validating"
	StateSubmitting CheckoutState = "submitting"
	StateSuccess    CheckoutState = "success"
	StateFailed     CheckoutState = "failed"
)

func (s CheckoutState) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible.
func (s CheckoutState) IsTerminal() bool { return s == StateSuccess }

// InFlight reports whether a submission currently owns the session.
func (s CheckoutState) InFlight() bool {
	return s == StateValidating || s == StateSubmitting
}

// CanTransitionTo checks whether moving from s to next is legal.
func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	switch s {
	case StateIdle:
		return next == StateValidating
	case StateValidating:
		return next == StateSubmitting || next == StateFailed
	case StateSubmitting:
		return next == StateSuccess || next == StateFailed
	case StateFailed:
		return next == StateIdle
	default:
		return false
	}
}

// CheckoutSession is one shopper's checkout form plus its submission state.
type CheckoutSession struct {
	ID        string
	OwnerKey  string
	CreatedAt time.Time
	Proof     *ProofStager

	mu          sync.Mutex
	state       CheckoutState
	address     models.ShippingAddress
	payment     models.PaymentSelection
	locationID  string
	locations   []models.DeliveryLocation
	fieldErrors ValidationErrors
	lastError   string
	order       *models.CreatedOrder
	warnings    []string
	touchedAt   time.Time
}

// SessionSnapshot is a consistent copy of a session.
type SessionSnapshot struct {
	ID          string
	OwnerKey    string
	State       CheckoutState
	Address     models.ShippingAddress
	Payment     models.PaymentSelection
	LocationID  string
	Locations   []models.DeliveryLocation
	Proof       models.StagedProof
	FieldErrors ValidationErrors
	LastError   string
	Order       *models.CreatedOrder
	Warnings    []string
}

func NewCheckoutSession(ownerKey string, locations []models.DeliveryLocation) *CheckoutSession {
	now := time.Now()
	return &CheckoutSession{
		ID:        uuid.NewString(),
		OwnerKey:  ownerKey,
		CreatedAt: now,
		Proof:     NewProofStager(),
		state:     StateIdle,
		locations: locations,
		touchedAt: now,
	}
}

func (s *CheckoutSession) State() CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *CheckoutSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:         s.ID,
		OwnerKey:   s.OwnerKey,
		State:      s.state,
		Address:    s.address,
		Payment:    s.payment,
		LocationID: s.locationID,
		Locations:  append([]models.DeliveryLocation(nil), s.locations...),
		Proof:      s.Proof.Snapshot(),
		LastError:  s.lastError,
		Warnings:   append([]string(nil), s.warnings...),
	}
	if len(s.fieldErrors) > 0 {
		snap.FieldErrors = make(ValidationErrors, len(s.fieldErrors))
		for k, v := range s.fieldErrors {
			snap.FieldErrors[k] = v
		}
	}
	if s.order != nil {
		o := *s.order
		snap.Order = &o
	}
	return snap
}

// editable must be called with s.mu held.
func (s *CheckoutSession) editable() error {
	switch {
	case s.state.InFlight():
		return ErrCheckoutInProgress
	case s.state.IsTerminal():
		return ErrCheckoutCompleted
	}
	return nil
}

func (s *CheckoutSession) SetAddress(addr models.ShippingAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.address = addr
	return nil
}

// SetPayment switches the payment variant. Values of the previous variant are
// dropped with it.
func (s *CheckoutSession) SetPayment(sel models.PaymentSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.payment = sel
	return nil
}

// SelectLocation picks one of the session's active delivery locations. An
// empty id clears the selection.
func (s *CheckoutSession) SelectLocation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if id != "" {
		found := false
		for _, loc := range s.locations {
			if loc.ID == id && loc.IsActive {
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownLocation
		}
	}
	s.locationID = id
	return nil
}

// The proof operations hold s.mu for their whole run so none of them can
// interleave with a submission that has already claimed the session. Lock
// order is session, then proof, as in Snapshot.

func (s *CheckoutSession) SelectProof(file models.ProofFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.Proof.SelectFile(file)
}

func (s *CheckoutSession) ConfirmProof() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.Proof.Confirm()
}

func (s *CheckoutSession) RemoveProof() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.Proof.Remove()
	return nil
}

// beginSubmit claims the session for one submission. A failed session is
// reset to idle first.
func (s *CheckoutSession) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if s.state == StateFailed {
		if err := s.transition(StateIdle); err != nil {
			return err
		}
	}
	if err := s.transition(StateValidating); err != nil {
		return err
	}
	s.fieldErrors = nil
	s.lastError = ""
	s.warnings = nil
	return nil
}

func (s *CheckoutSession) markSubmitting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StateSubmitting)
}

func (s *CheckoutSession) failValidation(errs ValidationErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldErrors = errs
	_ = s.transition(StateFailed)
}

func (s *CheckoutSession) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
	_ = s.transition(StateFailed)
}

func (s *CheckoutSession) succeed(order models.CreatedOrder, warnings []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = &order
	s.warnings = warnings
	_ = s.transition(StateSuccess)
}

// transition must be called with s.mu held.
func (s *CheckoutSession) transition(next CheckoutState) error {
	if !s.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
	}
	s.state = next
	s.touchedAt = time.Now()
	return nil
}

func (s *CheckoutSession) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.InFlight() {
		return 0
	}
	return now.Sub(s.touchedAt)
}

func (s *CheckoutSession) touch() {
	s.mu.Lock()
	s.touchedAt = time.Now()
	s.mu.Unlock()
}

// SessionStore keeps checkout sessions in memory and evicts idle ones.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*CheckoutSession
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*CheckoutSession),
		ttl:      ttl,
	}
}

func (st *SessionStore) Create(ownerKey string, locations []models.DeliveryLocation) *CheckoutSession {
	sess := NewCheckoutSession(ownerKey, locations)
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session if it exists and belongs to ownerKey.
func (st *SessionStore) Get(id, ownerKey string) (*CheckoutSession, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || sess.OwnerKey != ownerKey {
		return nil, ErrSessionNotFound
	}
	if st.ttl > 0 && sess.idleSince(time.Now()) > st.ttl {
		st.Delete(id)
		return nil, ErrSessionNotFound
	}
	sess.touch()
	return sess, nil
}

func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many
// were removed. In-flight sessions are never removed.
func (st *SessionStore) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is done.
func (st *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				st.Sweep(now)
			}
		}
	}()
}
