package services

import (
	"context"
	"time"

	"checkout-service/models"

	"go.uber.org/zap"
)

// CartStore persists carts by owner key.
type CartStore interface {
	GetCart(ctx context.Context, ownerKey string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, ownerKey string) error
}

// CartContext is the shopper's cart as seen by a checkout submission.
type CartContext interface {
	Lines(ctx context.Context) ([]models.CartLine, error)
	Clear(ctx context.Context) error
}

type storedCart struct {
	store    CartStore
	ownerKey string
}

// NewCartContext binds the cart store to one shopper.
func NewCartContext(store CartStore, auth models.AuthContext) CartContext {
	return &storedCart{store: store, ownerKey: auth.OwnerKey()}
}

func (c *storedCart) Lines(ctx context.Context) ([]models.CartLine, error) {
	cart, err := c.store.GetCart(ctx, c.ownerKey)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, nil
	}
	return cart.Items, nil
}

func (c *storedCart) Clear(ctx context.Context) error {
	return c.store.DeleteCart(ctx, c.ownerKey)
}

// CartService serves the cart endpoints used alongside checkout.
type CartService struct {
	store  CartStore
	logger *zap.Logger
}

func NewCartService(store CartStore, logger *zap.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// Get returns the shopper's cart, empty when none is stored.
func (s *CartService) Get(ctx context.Context, auth models.AuthContext) (*models.Cart, *ServiceError) {
	cart, err := s.store.GetCart(ctx, auth.OwnerKey())
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("owner", auth.OwnerKey()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 503, Message: "Failed to load cart"}
	}
	if cart == nil {
		cart = &models.Cart{OwnerKey: auth.OwnerKey(), Items: []models.CartLine{}}
	}
	return cart, nil
}

func (s *CartService) Replace(ctx context.Context, auth models.AuthContext, items []models.CartLine) (*models.Cart, *ServiceError) {
	if items == nil {
		items = []models.CartLine{}
	}
	cart := &models.Cart{OwnerKey: auth.OwnerKey(), Items: items, UpdatedAt: time.Now()}
	if err := s.store.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("owner", auth.OwnerKey()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 503, Message: "Failed to save cart"}
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, auth models.AuthContext) *ServiceError {
	if err := s.store.DeleteCart(ctx, auth.OwnerKey()); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("owner", auth.OwnerKey()), zap.Error(err))
		return &ServiceError{StatusCode: 503, Message: "Failed to clear cart"}
	}
	return nil
}

// Prune drops lines without a product id and returns the cleaned cart and the
// number of lines removed.
func (s *CartService) Prune(ctx context.Context, auth models.AuthContext) (*models.Cart, int, *ServiceError) {
	cart, svcErr := s.Get(ctx, auth)
	if svcErr != nil {
		return nil, 0, svcErr
	}

	kept := make([]models.CartLine, 0, len(cart.Items))
	for _, l := range cart.Items {
		if l.HasProduct() {
			kept = append(kept, l)
		}
	}
	removed := len(cart.Items) - len(kept)
	if removed == 0 {
		return cart, 0, nil
	}

	s.logger.Warn("Pruned invalid cart lines", zap.String("owner", auth.OwnerKey()), zap.Int("removed", removed))
	cart, svcErr = s.Replace(ctx, auth, kept)
	if svcErr != nil {
		return nil, 0, svcErr
	}
	return cart, removed, nil
}
