package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"checkout-service/clients"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"

	"go.uber.org/zap"
)

const (
	MsgOrderFailed      = "Failed to place order"
	MsgCartUnavailable  = "Failed to load cart"
	WarnProofNotUpload  = "Your order was placed, but the payment proof could not be uploaded. Our team will follow up."
	WarnCartNotCleared  = "Your order was placed, but your cart could not be cleared."
	WarnLocationMissing = "No delivery location was applied, shipping was not charged."
)

// OrderAPI is the remote Order API the checkout submits to.
type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, draft models.OrderDraft) (*models.CreatedOrder, error)
	UploadPaymentProof(ctx context.Context, token, orderID string, file models.ProofFile) error
}

// SubmitLocker serializes submissions of one shopper across sessions.
type SubmitLocker interface {
	AcquireCheckoutLock(ctx context.Context, ownerKey, holder string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, ownerKey, holder string) error
}

// CheckoutContext carries who is checking out and their cart.
type CheckoutContext struct {
	Auth models.AuthContext
	Cart CartContext
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	State         CheckoutState         `json:"state"`
	OrderID       string                `json:"orderId"`
	OrderNumber   string                `json:"orderNumber"`
	Pricing       models.PriceBreakdown `json:"pricing"`
	ProofUploaded bool                  `json:"proofUploaded"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// SessionView is what the storefront renders for a checkout session.
type SessionView struct {
	ID                 string                    `json:"id"`
	State              CheckoutState             `json:"state"`
	ShippingAddress    models.ShippingAddress    `json:"shippingAddress"`
	Payment            *models.PaymentSummary    `json:"payment,omitempty"`
	DeliveryLocationID string                    `json:"deliveryLocationId,omitempty"`
	DeliveryLocations  []models.DeliveryLocation `json:"deliveryLocations"`
	Proof              models.StagedProof        `json:"proof"`
	Items              []models.CartLine         `json:"items"`
	Pricing            models.PriceBreakdown     `json:"pricing"`
	Errors             ValidationErrors          `json:"errors,omitempty"`
	Error              string                    `json:"error,omitempty"`
	Order              *models.CreatedOrder      `json:"order,omitempty"`
	Warnings           []string                  `json:"warnings,omitempty"`
}

type CheckoutService struct {
	sessions  *SessionStore
	locations *LocationService
	orders    OrderAPI
	validator *FormValidator
	locker    SubmitLocker
	recovery  ProofRecorder
	events    eventPublisher
	metrics   MetricsRecorder
	lockTTL   time.Duration
	taxRate   float64
	logger    *zap.Logger

	// background tracks proof recovery still running after a response.
	background sync.WaitGroup
}

// NewCheckoutService wires the checkout orchestrator. locker, recovery,
// snsClient and metrics may be nil.
func NewCheckoutService(
	sessions *SessionStore,
	locations *LocationService,
	orders OrderAPI,
	validator *FormValidator,
	locker SubmitLocker,
	recovery ProofRecorder,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	metrics MetricsRecorder,
	lockTTL time.Duration,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		locations: locations,
		orders:    orders,
		validator: validator,
		locker:    locker,
		recovery:  recovery,
		events:    eventPublisher{snsClient: snsClient, snsTopicArn: snsTopicArn, logger: logger},
		metrics:   metrics,
		lockTTL:   lockTTL,
		taxRate:   DefaultTaxRate,
		logger:    logger,
	}
}

// StartSession opens a checkout session with the currently active delivery
// locations.
func (s *CheckoutService) StartSession(ctx context.Context, auth models.AuthContext) (*CheckoutSession, *ServiceError) {
	locations, svcErr := s.locations.ActiveLocations(ctx)
	if svcErr != nil {
		return nil, svcErr
	}
	sess := s.sessions.Create(auth.OwnerKey(), locations)
	s.logger.Info("Checkout session started", zap.String("session_id", sess.ID), zap.String("owner", sess.OwnerKey))
	return sess, nil
}

func (s *CheckoutService) Session(auth models.AuthContext, id string) (*CheckoutSession, error) {
	return s.sessions.Get(id, auth.OwnerKey())
}

// View prices the live cart against the session's form.
func (s *CheckoutService) View(ctx context.Context, sess *CheckoutSession, cart CartContext) (*SessionView, *ServiceError) {
	lines, err := cart.Lines(ctx)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 503, Message: MsgCartUnavailable}
	}
	if lines == nil {
		lines = []models.CartLine{}
	}

	snap := sess.Snapshot()
	return &SessionView{
		ID:                 snap.ID,
		State:              snap.State,
		ShippingAddress:    snap.Address,
		Payment:            models.SummarizePayment(snap.Payment),
		DeliveryLocationID: snap.LocationID,
		DeliveryLocations:  snap.Locations,
		Proof:              snap.Proof,
		Items:              lines,
		Pricing:            Calculate(lines, snap.LocationID, snap.Locations, s.taxRate),
		Errors:             snap.FieldErrors,
		Error:              snap.LastError,
		Order:              snap.Order,
		Warnings:           snap.Warnings,
	}, nil
}

// Submit places the order for sess. It returns ValidationErrors when the form
// is incomplete, ErrCheckoutInProgress or ErrCheckoutCompleted when the
// session cannot be submitted, and *ServiceError when the Order API fails.
func (s *CheckoutService) Submit(ctx context.Context, sess *CheckoutSession, cc CheckoutContext) (*SubmitResult, error) {
	if err := sess.beginSubmit(); err != nil {
		return nil, err
	}
	start := time.Now()
	owner := cc.Auth.OwnerKey()

	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricCheckoutSubmissions, nil)
	})

	lines, err := cc.Cart.Lines(ctx)
	if err != nil {
		s.logger.Error("Failed to load cart for checkout", zap.String("session_id", sess.ID), zap.Error(err))
		sess.fail(MsgCartUnavailable)
		return nil, &ServiceError{StatusCode: 503, Message: MsgCartUnavailable}
	}

	snap := sess.Snapshot()
	pricing := Calculate(lines, snap.LocationID, snap.Locations, s.taxRate)

	errs := s.validator.Validate(snap.Address, snap.Payment, lines, snap.Proof)
	if !pricing.Finite() {
		errs[FieldTotalPrice] = MsgTotalInvalid
	}
	if !errs.Valid() {
		sess.failValidation(errs)
		s.logger.Info("Checkout validation failed", zap.String("session_id", sess.ID), zap.Int("errors", len(errs)))
		recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
			_ = m.RecordCount(ctx, aws_pkg.MetricCheckoutValidationFailed, nil)
		})
		return nil, errs
	}

	var warnings []string
	if !pricing.LocationResolved {
		s.logger.Warn("Submitting checkout without a delivery location",
			zap.String("session_id", sess.ID),
			zap.String("location_id", snap.LocationID),
		)
		warnings = append(warnings, WarnLocationMissing)
	}

	if s.locker != nil {
		acquired, err := s.locker.AcquireCheckoutLock(ctx, owner, sess.ID, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Checkout lock unavailable, continuing without it", zap.String("owner", owner), zap.Error(err))
		case !acquired:
			sess.fail(ErrCheckoutInProgress.Error())
			return nil, ErrCheckoutInProgress
		default:
			defer func() {
				if err := s.locker.ReleaseCheckoutLock(context.WithoutCancel(ctx), owner, sess.ID); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.String("owner", owner), zap.Error(err))
				}
			}()
		}
	}

	if err := sess.markSubmitting(); err != nil {
		return nil, err
	}

	draft := BuildOrderDraft(snap.Address, snap.Payment, lines, pricing)
	order, err := s.orders.CreateOrder(ctx, cc.Auth.Token, draft)
	if err != nil {
		svcErr := upstreamError(err)
		s.logger.Error("Failed to create order",
			zap.String("session_id", sess.ID),
			zap.Int("status", svcErr.StatusCode),
			zap.Error(err),
		)
		sess.fail(svcErr.Message)
		recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
			_ = m.RecordCount(ctx, aws_pkg.MetricOrdersFailed, nil)
		})
		return nil, svcErr
	}

	// The order exists from here on. Nothing below may fail the checkout, and a
	// shopper disconnecting must not abort the remaining steps.
	after := context.WithoutCancel(ctx)

	proofUploaded := false
	if _, ok := snap.Payment.(models.BankTransferPayment); ok {
		consumed, uploadErr := sess.Proof.Consume(after, order.ID, func(ctx context.Context, orderID string, file models.ProofFile) error {
			err := s.orders.UploadPaymentProof(ctx, cc.Auth.Token, orderID, file)
			if err != nil {
				s.recordProofFailure(ctx, ProofFailure{Order: *order, OwnerKey: owner, File: file, Cause: err})
			}
			return err
		})
		switch {
		case uploadErr != nil:
			s.logger.Warn("Payment proof upload failed", zap.String("order_id", order.ID), zap.Error(uploadErr))
			warnings = append(warnings, WarnProofNotUpload)
		case !consumed:
			// Validated as readied, but gone by the time the order existed.
			s.logger.Warn("Payment proof no longer staged after order creation",
				zap.String("session_id", sess.ID),
				zap.String("order_id", order.ID),
			)
			warnings = append(warnings, WarnProofNotUpload)
		default:
			proofUploaded = true
		}
	} else {
		sess.Proof.Remove()
	}

	if err := cc.Cart.Clear(after); err != nil {
		s.logger.Error("Failed to clear cart after checkout", zap.String("owner", owner), zap.Error(err))
		warnings = append(warnings, WarnCartNotCleared)
	}

	sess.succeed(*order, warnings)

	s.logger.Info("Order placed",
		zap.String("session_id", sess.ID),
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", pricing.TotalPrice),
	)

	s.events.publish(after, models.CheckoutCompletedEvent{
		EventType:     models.EventCheckoutCompleted,
		SessionID:     sess.ID,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OwnerKey:      owner,
		Guest:         cc.Auth.IsGuest(),
		PaymentMethod: snap.Payment.Method(),
		ItemCount:     len(draft.OrderItems),
		TotalPrice:    pricing.TotalPrice,
		ProofUploaded: proofUploaded,
		Timestamp:     time.Now(),
	})

	elapsed := time.Since(start)
	method := string(snap.Payment.Method())
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		dims := map[string]string{"PaymentMethod": method}
		_ = m.RecordCount(ctx, aws_pkg.MetricOrdersCreated, dims)
		_ = m.RecordValue(ctx, aws_pkg.MetricOrderValue, pricing.TotalPrice, dims)
		_ = m.RecordLatency(ctx, aws_pkg.MetricCheckoutLatency, elapsed, nil)
	})

	return &SubmitResult{
		State:         StateSuccess,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Pricing:       pricing,
		ProofUploaded: proofUploaded,
		Warnings:      warnings,
	}, nil
}

// recordProofFailure hands f to the recovery chain without holding up the
// response.
func (s *CheckoutService) recordProofFailure(ctx context.Context, f ProofFailure) {
	if s.recovery == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.recovery.Record(context.WithoutCancel(ctx), f)
	}()
}

// Wait blocks until background proof recovery has finished.
func (s *CheckoutService) Wait() {
	s.background.Wait()
}

// BuildOrderDraft assembles the POST /orders payload. Lines without a product
// id are left out.
func BuildOrderDraft(address models.ShippingAddress, payment models.PaymentSelection, lines []models.CartLine, pricing models.PriceBreakdown) models.OrderDraft {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		if !l.HasProduct() {
			continue
		}
		items = append(items, models.OrderItem{
			Product:  l.ProductID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice,
			Image:    l.ImageRef,
		})
	}

	draft := models.OrderDraft{
		OrderItems:      items,
		ShippingAddress: address.Normalized(),
		ItemsPrice:      pricing.ItemsPrice,
		TaxPrice:        pricing.TaxPrice,
		ShippingPrice:   pricing.ShippingPrice,
		TotalPrice:      pricing.TotalPrice,
	}
	if payment != nil {
		draft.PaymentMethod = payment.Method()
		draft.PaymentResult = models.NewPaymentResult(payment)
	}
	return draft
}

// upstreamError passes Order API client errors through and reports
// everything else as a bad gateway.
func upstreamError(err error) *ServiceError {
	var apiErr *clients.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = MsgOrderFailed
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return &ServiceError{StatusCode: apiErr.StatusCode, Message: msg}
		}
		return &ServiceError{StatusCode: 502, Message: msg}
	}
	return &ServiceError{StatusCode: 502, Message: MsgOrderFailed}
}
