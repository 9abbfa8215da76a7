package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

const (
	familyList   = "all_products"
	familySingle = "product"

	defaultCacheTTL       = 60 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultLoadTimeout    = 10 * time.Second
)

// CatalogConfig holds the optional collaborators of a CatalogService.
type CatalogConfig struct {
	// Cache may be nil, which disables caching.
	Cache     ports.Cache
	Publisher ports.InventoryPublisher
	Tracker   ports.WorkTracker
	Observer  ports.CatalogObserver

	TTL            time.Duration
	PublishTimeout time.Duration
	// LoadTimeout bounds a shared collection load, which runs detached from
	// the callers waiting on it.
	LoadTimeout time.Duration
	Logger      *logrus.Logger
}

// CatalogService serves products cache-aside over the durable repository.
type CatalogService struct {
	repo           ports.ProductRepository
	cache          ports.Cache
	publisher      ports.InventoryPublisher
	tracker        ports.WorkTracker
	observer       ports.CatalogObserver
	ttl            time.Duration
	publishTimeout time.Duration
	loadTimeout    time.Duration
	logger         *logrus.Logger
	sf             singleflight.Group
}

func NewCatalogService(repo ports.ProductRepository, cfg CatalogConfig) *CatalogService {
	s := &CatalogService{
		repo:           repo,
		cache:          cfg.Cache,
		publisher:      cfg.Publisher,
		tracker:        cfg.Tracker,
		observer:       cfg.Observer,
		ttl:            cfg.TTL,
		publishTimeout: cfg.PublishTimeout,
		loadTimeout:    cfg.LoadTimeout,
		logger:         cfg.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = defaultPublishTimeout
	}
	if s.loadTimeout <= 0 {
		s.loadTimeout = defaultLoadTimeout
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	return s
}

func (s *CatalogService) FindAll(ctx context.Context) ([]*product.Product, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.done()

	if list, ok := cacheGet[[]*product.Product](s, ctx, product.AllProductsKey, familyList); ok {
		return *list, nil
	}

	// The load is shared by every caller waiting on the key, so it must not
	// inherit any one caller's cancellation. Each caller still stops waiting
	// when its own context ends.
	ch := s.sf.DoChan(product.AllProductsKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		all, err := s.repo.FindAll(loadCtx)
		if err != nil {
			return nil, err
		}
		s.cacheSet(loadCtx, product.AllProductsKey, all)
		return all, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	all, ok := res.Val.([]*product.Product)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return all, nil
}

func (s *CatalogService) FindOne(ctx context.Context, id string) (*product.Product, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.done()
	return s.findOne(ctx, id)
}

func (s *CatalogService) findOne(ctx context.Context, id string) (*product.Product, error) {
	key := product.CacheKey(id)
	if p, ok := cacheGet[product.Product](s, ctx, key, familySingle); ok {
		return p, nil
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, p)
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.done()

	// Once the durable write starts, the invalidation that follows it must not be skipped.
	ctx = context.WithoutCancel(ctx)

	created, err := s.repo.Create(ctx, &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         req.SKU,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"sku": req.SKU}).WithError(err).Error("failed to create product")
		return nil, asWriteFailed(err)
	}

	s.cacheDelete(ctx, product.AllProductsKey)
	s.cacheSet(ctx, product.CacheKey(created.ID), created)
	s.logger.WithFields(logrus.Fields{"id": created.ID, "sku": created.SKU}).Info("product created")

	if req.Quantity != 0 {
		s.publishAsync(inventory.NewEvent(created.ID, req.Quantity))
	}
	return created, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.done()

	if _, err := s.findOne(ctx, id); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			s.invalidate(ctx, id)
			return nil, err
		}
		s.logger.WithField("id", id).WithError(err).Error("failed to update product")
		return nil, asWriteFailed(err)
	}

	s.cacheDelete(ctx, product.AllProductsKey)
	s.cacheSet(ctx, product.CacheKey(id), updated)
	s.logger.WithField("id", id).Info("product updated")

	if delta := req.InventoryDelta(); delta != 0 {
		s.publishAsync(inventory.NewEvent(id, delta))
	}
	return updated, nil
}

func (s *CatalogService) Remove(ctx context.Context, id string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.done()

	if _, err := s.findOne(ctx, id); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			s.invalidate(ctx, id)
			return err
		}
		s.logger.WithField("id", id).WithError(err).Error("failed to delete product")
		return asWriteFailed(err)
	}

	s.invalidate(ctx, id)
	s.logger.WithField("id", id).Info("product removed")
	return nil
}

func (s *CatalogService) enter() error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Enter()
}

func (s *CatalogService) done() {
	if s.tracker != nil {
		s.tracker.Done()
	}
}

// publishAsync hands ev to the broker off the request path. The outcome never
// reaches the caller.
func (s *CatalogService) publishAsync(ev inventory.Event) {
	if s.publisher == nil {
		return
	}
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()
		fields := logrus.Fields{"event_id": ev.ID, "product_id": ev.ProductID, "quantity": ev.QuantityDelta}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.observer.PublishResult(false)
			s.logger.WithFields(fields).WithError(err).Warn("inventory event not published")
			return
		}
		s.observer.PublishResult(true)
		s.logger.WithFields(fields).Debug("inventory event published")
	}
	if s.tracker != nil {
		s.tracker.Go(run)
		return
	}
	go run()
}

// cacheGet is fail-open: decode and transport errors count as a miss.
func cacheGet[T any](s *CatalogService, ctx context.Context, key, family string) (*T, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.observer.CacheError("get")
		s.logger.WithField("key", key).WithError(err).Warn("cache read failed, falling back to store")
		return nil, false
	}
	if !ok {
		s.observer.CacheMiss(family)
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.observer.CacheError("decode")
		s.logger.WithField("key", key).WithError(err).Warn("cache entry undecodable, treating as miss")
		return nil, false
	}
	s.observer.CacheHit(family)
	return &v, true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.observer.CacheError("set")
		s.logger.WithField("key", key).WithError(err).Warn("cache write failed")
	}
}

// invalidate drops the collection and the single entry for id together.
func (s *CatalogService) invalidate(ctx context.Context, id string) {
	s.cacheDelete(ctx, product.AllProductsKey)
	s.cacheDelete(ctx, product.CacheKey(id))
}

func (s *CatalogService) cacheDelete(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.observer.CacheError("delete")
		s.logger.WithField("key", key).WithError(err).Warn("cache invalidation failed")
	}
}

// asWriteFailed keeps PoolExhausted and WriteFailed errors as they are and wraps anything else.
func asWriteFailed(err error) error {
	if errors.Is(err, product.ErrWriteFailed) || errors.Is(err, product.ErrPoolExhausted) {
		return err
	}
	return fmt.Errorf("%w: %w", product.ErrWriteFailed, err)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string)    {}
func (noopObserver) CacheMiss(string)   {}
func (noopObserver) CacheError(string)  {}
func (noopObserver) PublishResult(bool) {}

var _ ports.ProductService = (*CatalogService)(nil)
