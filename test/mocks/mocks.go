package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// ErrCacheDown is returned by MemoryCache while Fail is set.
var ErrCacheDown = errors.New("cache unavailable")

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process ports.Cache with TTL expiry and call counters.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
	fail    bool

	Gets, Sets, Deletes int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]cacheEntry{}, now: time.Now}
}

// SetClock replaces the time source used for expiry.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetFail makes every operation return ErrCacheDown while on is true.
func (c *MemoryCache) SetFail(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = on
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	if c.fail {
		return nil, false, ErrCacheDown
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets++
	if c.fail {
		return ErrCacheDown
	}
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deletes++
	if c.fail {
		return ErrCacheDown
	}
	delete(c.entries, key)
	return nil
}

// Has reports whether key holds an unexpired entry, without counting as a Get.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && c.now().Before(e.expiresAt)
}

// Raw returns the stored bytes for key.
func (c *MemoryCache) Raw(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key].value
}

// Put seeds an entry directly.
func (c *MemoryCache) Put(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// ProductRepositoryMock is a lightweight mock for ProductRepository
type ProductRepositoryMock struct {
	FindAllFn  func(ctx context.Context) ([]*product.Product, error)
	FindByIDFn func(ctx context.Context, id string) (*product.Product, error)
	CreateFn   func(ctx context.Context, p *product.Product) (*product.Product, error)
	UpdateFn   func(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error)
	DeleteFn   func(ctx context.Context, id string) error
}

func (m *ProductRepositoryMock) FindAll(ctx context.Context) ([]*product.Product, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	return []*product.Product{}, nil
}
func (m *ProductRepositoryMock) FindByID(ctx context.Context, id string) (*product.Product, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, product.ErrNotFound
}
func (m *ProductRepositoryMock) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return p, nil
}
func (m *ProductRepositoryMock) Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	return nil, product.ErrNotFound
}
func (m *ProductRepositoryMock) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// MemoryProductRepository is an in-memory ProductRepository that counts calls.
type MemoryProductRepository struct {
	mu       sync.Mutex
	rows     map[string]*product.Product
	order    []string
	FailWith error

	FindAllCalls, FindByIDCalls, WriteCalls int
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{rows: map[string]*product.Product{}}
}

func (r *MemoryProductRepository) FindAll(ctx context.Context) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindAllCalls++
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	out := make([]*product.Product, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.rows[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryProductRepository) FindByID(ctx context.Context, id string) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindByIDCalls++
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WriteCalls++
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	cp := *p
	product.Normalize(&cp)
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.rows[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	out := cp
	return &out, nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WriteCalls++
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	n := *req
	product.NormalizeUpdate(&n)
	if n.Name != nil {
		p.Name = *n.Name
	}
	if n.Description != nil {
		p.Description = *n.Description
	}
	if n.Price != nil {
		p.Price = *n.Price
	}
	if n.SKU != nil {
		p.SKU = *n.SKU
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WriteCalls++
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.rows[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// InventoryPublisherMock records published events.
type InventoryPublisherMock struct {
	mu        sync.Mutex
	PublishFn func(ctx context.Context, ev inventory.Event) error
	CloseFn   func(ctx context.Context) error
	Events    []inventory.Event
}

func (m *InventoryPublisherMock) Publish(ctx context.Context, ev inventory.Event) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(ctx, ev); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
	return nil
}

func (m *InventoryPublisherMock) Close(ctx context.Context) error {
	if m.CloseFn != nil {
		return m.CloseFn(ctx)
	}
	return nil
}

// Published returns a copy of the accepted events.
func (m *InventoryPublisherMock) Published() []inventory.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inventory.Event(nil), m.Events...)
}

// ProductServiceMock is a lightweight mock for ProductService
type ProductServiceMock struct {
	FindAllFn func(ctx context.Context) ([]*product.Product, error)
	FindOneFn func(ctx context.Context, id string) (*product.Product, error)
	CreateFn  func(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error)
	UpdateFn  func(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error)
	RemoveFn  func(ctx context.Context, id string) error
}

func (m *ProductServiceMock) FindAll(ctx context.Context) ([]*product.Product, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	return []*product.Product{}, nil
}
func (m *ProductServiceMock) FindOne(ctx context.Context, id string) (*product.Product, error) {
	if m.FindOneFn != nil {
		return m.FindOneFn(ctx, id)
	}
	return nil, product.ErrNotFound
}
func (m *ProductServiceMock) Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	return nil, product.ErrWriteFailed
}
func (m *ProductServiceMock) Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	return nil, product.ErrNotFound
}
func (m *ProductServiceMock) Remove(ctx context.Context, id string) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, id)
	}
	return nil
}

var (
	_ ports.Cache              = (*MemoryCache)(nil)
	_ ports.ProductRepository  = (*MemoryProductRepository)(nil)
	_ ports.ProductRepository  = (*ProductRepositoryMock)(nil)
	_ ports.InventoryPublisher = (*InventoryPublisherMock)(nil)
	_ ports.ProductService     = (*ProductServiceMock)(nil)
)
