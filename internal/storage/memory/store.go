package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Store — in-memory реализация всех хранилищ checkout-сервиса для локальной
// разработки и тестов. Один мьютекс на все таблицы: транзакционность
// PostgreSQL здесь моделируется критической секцией.
type Store struct {
	mu sync.RWMutex

	products     map[int64]domain.Product
	users        map[int64]domain.User
	usersByEmail map[string]int64
	regions      map[string]domain.Region
	communes     map[string]domain.Commune
	cartItems    map[int64][]domain.CartItem // по userID
	orders       map[int64]domain.Order
	transactions map[string]domain.PaymentTransaction // по токену

	nextUserID  int64
	nextOrderID int64
	nextItemID  int64
	nextTxnID   int64

	now func() time.Time
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		products:     make(map[int64]domain.Product),
		users:        make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
		regions:      make(map[string]domain.Region),
		communes:     make(map[string]domain.Commune),
		cartItems:    make(map[int64][]domain.CartItem),
		orders:       make(map[int64]domain.Order),
		transactions: make(map[string]domain.PaymentTransaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет источник времени (для тестов экспирации).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SeedProduct кладёт товар в каталог, назначая id при необходимости.
func (s *Store) SeedProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = int64(len(s.products) + 1)
	}
	s.products[p.ID] = p
	return p
}

// SeedUser регистрирует пользователя (обычно это делает внешний auth-сервис).
func (s *Store) SeedUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(u)
}

// SeedRegion добавляет регион доставки.
func (s *Store) SeedRegion(r domain.Region) domain.Region {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == 0 {
		r.ID = int64(len(s.regions) + 1)
	}
	s.regions[r.Name] = r
	return r
}

// SeedCommune добавляет коммуну доставки.
func (s *Store) SeedCommune(c domain.Commune) domain.Commune {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = int64(len(s.communes) + 1)
	}
	s.communes[c.Name] = c
	return c
}

// UserByEmail возвращает пользователя по email.
func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

// ProductStock возвращает текущий остаток товара (для ассертов в тестах).
func (s *Store) ProductStock(id int64) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id].Stock
}

func (s *Store) insertUserLocked(u domain.User) domain.User {
	if u.ID == 0 {
		s.nextUserID++
		u.ID = s.nextUserID
	} else if u.ID > s.nextUserID {
		s.nextUserID = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return u
}
