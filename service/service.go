package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	models "ecofinds/model"
	"ecofinds/store"
)

const (
	DefaultMaxRetries         = 5
	DefaultCatalogConcurrency = 10
)

type Options struct {
	// MaxRetries bounds how often a cart or checkout write is retried
	// after losing a compare-and-swap.
	MaxRetries int
	// CatalogConcurrency bounds parallel product lookups.
	CatalogConcurrency int
	Logger             *zap.Logger
	Now                func() time.Time
	NewID              func() string
}

// Service owns cart mutations, checkout and order payment state.
//
// Every read-modify-write of a cart runs under a per-user mutex and is
// committed with a versioned write, so two requests in this process are
// serialized and a writer in another process is detected as a conflict.
type Service struct {
	store              store.Store
	log                *zap.Logger
	maxRetries         int
	catalogConcurrency int
	now                func() time.Time
	newID              func() string

	locks sync.Map // userID -> *sync.Mutex
}

func NewService(s store.Store, opts Options) *Service {
	svc := &Service{
		store:              s,
		log:                opts.Logger,
		maxRetries:         opts.MaxRetries,
		catalogConcurrency: opts.CatalogConcurrency,
		now:                opts.Now,
		newID:              opts.NewID,
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}
	if svc.maxRetries <= 0 {
		svc.maxRetries = DefaultMaxRetries
	}
	if svc.catalogConcurrency <= 0 {
		svc.catalogConcurrency = DefaultCatalogConcurrency
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc
}

func (s *Service) lockForUser(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// ProductInput is a new listing as submitted by its seller.
type ProductInput struct {
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
}

func (s *Service) CreateProduct(ctx context.Context, sellerID string, in ProductInput) (models.Product, error) {
	if sellerID == "" {
		return models.Product{}, NewInvalidOperation(ErrMsgUserRequired)
	}
	p := models.Product{
		ID:          s.newID(),
		SellerID:    sellerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
	}
	if !p.Valid() {
		return models.Product{}, NewInvalidOperation(ErrMsgInvalidProduct)
	}
	if !models.PriceFits(p.Price) {
		return models.Product{}, NewInvalidOperation(ErrMsgPriceScale)
	}
	out, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return models.Product{}, NewStoreUnavailable(err)
	}
	s.log.Info("product listed", zap.String("product_id", out.ID), zap.String("seller_id", sellerID))
	return out, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	out, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, NewStoreUnavailable(err)
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, NewNotFound(ErrMsgProductNotFound)
	}
	if err != nil {
		return models.Product{}, NewStoreUnavailable(err)
	}
	return p, nil
}
