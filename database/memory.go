package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"storefront-service/models"
)

// MemoryStore keeps everything in process memory. Order transactions are
// serialized and their writes become visible only on commit, which gives the
// same oversell protection as row locks on a single instance.
type MemoryStore struct {
	txMu sync.Mutex

	mu         sync.RWMutex
	products   map[int64]models.Product
	orders     map[string]models.OrderRecord
	users      map[int64]models.User
	nextUserID int64
}

func NewMemoryStore(products ...models.Product) *MemoryStore {
	s := &MemoryStore{
		products: make(map[int64]models.Product),
		orders:   make(map[string]models.OrderRecord),
		users:    make(map[int64]models.User),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) SeedProducts(_ context.Context, products []models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	out := []models.Product{}
	for _, p := range s.products {
		if f.Category != "" && f.Category != models.CategoryAll && string(p.Category) != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetProducts(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *MemoryStore) InOrderTx(ctx context.Context, fn func(OrderTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memOrderTx{store: s, decrements: make(map[int64]int)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range tx.orders {
		if _, dup := s.orders[rec.ID]; dup {
			return ErrDuplicateKey
		}
	}
	for _, rec := range tx.orders {
		s.orders[rec.ID] = rec
	}
	for id, qty := range tx.decrements {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}
	return nil
}

type memOrderTx struct {
	store      *MemoryStore
	decrements map[int64]int
	orders     []models.OrderRecord
}

func (t *memOrderTx) LockProducts(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		p, ok := t.store.products[id]
		if !ok {
			continue
		}
		p.Stock -= t.decrements[id]
		out[id] = p
	}
	return out, nil
}

func (t *memOrderTx) InsertOrder(_ context.Context, rec models.OrderRecord) error {
	t.store.mu.RLock()
	_, dup := t.store.orders[rec.ID]
	t.store.mu.RUnlock()
	if dup {
		return ErrDuplicateKey
	}
	for _, pending := range t.orders {
		if pending.ID == rec.ID {
			return ErrDuplicateKey
		}
	}
	t.orders = append(t.orders, rec)
	return nil
}

func (t *memOrderTx) DecrementStock(_ context.Context, productID int64, qty int) (bool, error) {
	t.store.mu.RLock()
	p, ok := t.store.products[productID]
	t.store.mu.RUnlock()
	if !ok || p.Stock-t.decrements[productID] < qty {
		return false, nil
	}
	t.decrements[productID] += qty
	return true, nil
}

func (s *MemoryStore) InsertOrder(_ context.Context, rec models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.orders[rec.ID]; dup {
		return ErrDuplicateKey
	}
	s.orders[rec.ID] = rec
	return nil
}

func (s *MemoryStore) ListOrderRecords(_ context.Context, userID int64) ([]models.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.OrderRecord{}
	for _, rec := range s.orders {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateKey
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
