package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ---- cart store ----

type memCartStore struct {
	mu      sync.Mutex
	carts   map[string]*models.Cart
	getErr  error
	saveErr error
	delErr  error
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[string]*models.Cart)}
}

func (m *memCartStore) put(ownerKey string, lines ...models.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[ownerKey] = &models.Cart{OwnerKey: ownerKey, Items: lines}
}

func (m *memCartStore) lines(ownerKey string) []models.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[ownerKey]; ok {
		return c.Items
	}
	return nil
}

func (m *memCartStore) GetCart(ctx context.Context, ownerKey string) (*models.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[ownerKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.CartLine(nil), c.Items...)
	return &cp, nil
}

func (m *memCartStore) SaveCart(ctx context.Context, cart *models.Cart) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	m.carts[cart.OwnerKey] = &cp
	return nil
}

// DeleteCart fails on a cancelled context like a real network store would.
func (m *memCartStore) DeleteCart(ctx context.Context, ownerKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.delErr != nil {
		return m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, ownerKey)
	return nil
}

// ---- order api ----

type fakeOrders struct {
	mu        sync.Mutex
	calls     []string
	drafts    []models.OrderDraft
	tokens    []string
	uploads   []models.ProofFile
	order     models.CreatedOrder
	createErr error
	uploadErr error

	// entered is signalled when CreateOrder starts; release unblocks it.
	entered chan struct{}
	release chan struct{}
	// onCreate runs inside CreateOrder before it returns.
	onCreate func()
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{order: models.CreatedOrder{ID: "o-1", OrderNumber: "ORD-1001"}}
}

func (f *fakeOrders) CreateOrder(ctx context.Context, token string, draft models.OrderDraft) (*models.CreatedOrder, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "create")
	f.drafts = append(f.drafts, draft)
	f.tokens = append(f.tokens, token)
	entered, release, onCreate := f.entered, f.release, f.onCreate
	err, order := f.createErr, f.order
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if onCreate != nil {
		onCreate()
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (f *fakeOrders) UploadPaymentProof(ctx context.Context, token, orderID string, file models.ProofFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload:"+orderID)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, file)
	return nil
}

func (f *fakeOrders) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == "create" {
			n++
		}
	}
	return n
}

func (f *fakeOrders) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ---- submit lock ----

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) holder(ownerKey string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[ownerKey]
}

func (l *fakeLocker) AcquireCheckoutLock(ctx context.Context, ownerKey, holder string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.held[ownerKey]; ok {
		return false, nil
	}
	l.held[ownerKey] = holder
	return true, nil
}

func (l *fakeLocker) ReleaseCheckoutLock(ctx context.Context, ownerKey, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[ownerKey] != holder {
		return repository.ErrLockNotHeld
	}
	delete(l.held, ownerKey)
	l.released = append(l.released, ownerKey)
	return nil
}

// ---- proof recorder ----

type fakeRecorder struct {
	mu       sync.Mutex
	failures []services.ProofFailure
}

func (r *fakeRecorder) Record(ctx context.Context, f services.ProofFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *fakeRecorder) recorded() []services.ProofFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.ProofFailure(nil), r.failures...)
}

// ---- locations ----

type fakeLocationSource struct {
	locations []models.DeliveryLocation
	err       error
	calls     int
}

func (s *fakeLocationSource) ListDeliveryLocations(ctx context.Context) ([]models.DeliveryLocation, error) {
	s.calls++
	return s.locations, s.err
}

type fakeLocationCache struct {
	locations []models.DeliveryLocation
	hit       bool
	setErr    error
	sets      int
}

func (c *fakeLocationCache) Get(ctx context.Context) ([]models.DeliveryLocation, bool) {
	return c.locations, c.hit
}

func (c *fakeLocationCache) Set(ctx context.Context, locations []models.DeliveryLocation) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.locations = locations
	c.hit = true
	return nil
}

// ---- sns ----

type fakeSNS struct {
	mu       sync.Mutex
	messages []map[string]interface{}
	err      error
}

func (s *fakeSNS) Publish(ctx context.Context, topicArn string, message []byte) error {
	if s.err != nil {
		return s.err
	}
	var m map[string]interface{}
	_ = json.Unmarshal(message, &m)
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return nil
}

func (s *fakeSNS) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, fmt.Sprint(m["event_type"]))
	}
	return out
}

// ---- object store / queue / failure repo ----

type fakeObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func (s *fakeObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, _ := io.ReadAll(body)
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *fakeObjectStore) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key, nil
}

type fakeQueue struct {
	bodies []string
	err    error
}

func (q *fakeQueue) SendMessage(ctx context.Context, body string) error {
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}

type fakeFailureRepo struct {
	created   []*models.ProofUploadFailure
	byID      map[uuid.UUID]*models.ProofUploadFailure
	createErr error
	findErr   error
	updated   []*models.ProofUploadFailure
}

func (r *fakeFailureRepo) Create(ctx context.Context, f *models.ProofUploadFailure) error {
	if r.createErr != nil {
		return r.createErr
	}
	f.ID = uuid.New()
	r.created = append(r.created, f)
	if r.byID == nil {
		r.byID = make(map[uuid.UUID]*models.ProofUploadFailure)
	}
	r.byID[f.ID] = f
	return nil
}

func (r *fakeFailureRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProofUploadFailure, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	f, ok := r.byID[id]
	if !ok {
		return nil, errNotFound
	}
	return f, nil
}

func (r *fakeFailureRepo) FindByStatus(ctx context.Context, status string, page, limit int) ([]models.ProofUploadFailure, int64, error) {
	if r.findErr != nil {
		return nil, 0, r.findErr
	}
	var out []models.ProofUploadFailure
	for _, f := range r.created {
		if f.Status == status {
			out = append(out, *f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFailureRepo) Update(ctx context.Context, f *models.ProofUploadFailure) error {
	r.updated = append(r.updated, f)
	return nil
}

var errNotFound = gorm.ErrRecordNotFound
