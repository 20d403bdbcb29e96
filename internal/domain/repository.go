package domain

import (
	"context"
	"time"
)

// CheckoutRepository выполняет транзакцию создания заказа: разрешение
// идентичности, загрузку корзины, валидацию стока под блокировками строк,
// снапшот цен, расчёт доставки и вставку заказа с позициями.
type CheckoutRepository interface {
	// CreateOrder атомарно создаёт заказ по черновику. Сток на этом этапе
	// не списывается — только проверяется под блокировкой.
	CreateOrder(ctx context.Context, draft CheckoutDraft) (Order, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// ListAll возвращает все заказы, новые первыми (административная выборка).
	ListAll(ctx context.Context) ([]Order, error)
	// ListExpiredPending возвращает PENDING-заказы с истёкшим expiresAt.
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]Order, error)
	// UpdateStatus атомарно переводит заказ from → to. Возвращает
	// ErrOrderStateConflict, если заказ уже не в статусе from, —
	// это сериализует конкурентные подтверждения одного токена.
	UpdateStatus(ctx context.Context, orderID int64, from, to OrderStatus) error
	// UpdateDeliveryStatus меняет логистический статус (действие администратора).
	UpdateDeliveryStatus(ctx context.Context, orderID int64, status DeliveryStatus) error
}

// ProductRepository — read-модель каталога. CRUD каталога живёт во внешнем
// сервисе; здесь только выборки для резолва корзины.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (Product, error)
	// GetByIDs возвращает найденные товары; отсутствующие id просто не попадают
	// в результат, решение об ошибке принимает вызывающая сторона.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
}

// CartRepository хранит корзины зарегистрированных пользователей.
type CartRepository interface {
	// List возвращает позиции корзины, дополненные живым состоянием товара.
	List(ctx context.Context, userID int64) ([]ResolvedItem, error)
	// Upsert вставляет позицию или перезаписывает её количество.
	Upsert(ctx context.Context, item CartItem) error
	// Remove удаляет позицию; ErrCartItemNotFound, если её нет.
	Remove(ctx context.Context, userID, productID int64) error
	// Clear удаляет все позиции пользователя.
	Clear(ctx context.Context, userID int64) error
}

// GuestCartStore хранит эфемерные гостевые корзины по opaque-идентификатору
// гостевой сессии. Записи живут ограниченное время и не переживают checkout.
type GuestCartStore interface {
	Add(ctx context.Context, guestID string, productID int64, qty int32) error
	List(ctx context.Context, guestID string) ([]CartSelection, error)
	Clear(ctx context.Context, guestID string) error
}

// PaymentRepository хранит платёжные транзакции.
type PaymentRepository interface {
	Create(ctx context.Context, txn PaymentTransaction) (PaymentTransaction, error)
	GetByToken(ctx context.Context, token string) (PaymentTransaction, error)
	// UpdateStatusByToken синхронизирует статус транзакции со статусом заказа.
	UpdateStatusByToken(ctx context.Context, token string, status OrderStatus) error
}
