package domain

import "time"

// OrderStatus описывает платёжный жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid — оплата подтверждена шлюзом, сток списан.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusCancelled — заказ отклонён шлюзом или истёк по времени.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusShipped — заказ передан в доставку (действие администратора).
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered — заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// DeliveryStatus — независимый логистический статус заказа.
type DeliveryStatus string

const (
	DeliveryStatusPreparing      DeliveryStatus = "PREPARING"
	DeliveryStatusReadyForPickup DeliveryStatus = "READY_FOR_PICKUP"
	DeliveryStatusDispatched     DeliveryStatus = "DISPATCHED"
	DeliveryStatusShipped        DeliveryStatus = "SHIPPED"
	DeliveryStatusDelivered      DeliveryStatus = "DELIVERED"
)

// validNext задаёт допустимые переходы платёжного статуса.
// Из PENDING заказ уходит только через подтверждение оплаты или экспирацию.
// PAID движется вперёд к SHIPPED либо отменяется администратором (возврат
// средств и возврат стока); сверка платежей этим переходом не пользуется,
// она переводит заказы только из PENDING.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:      {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusCancelled: {},
	OrderStatusDelivered: {},
}

// CanTransition сообщает, допустим ли переход статуса from → to.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// ValidDeliveryStatus проверяет принадлежность значения к известным статусам доставки.
func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPreparing, DeliveryStatusReadyForPickup,
		DeliveryStatusDispatched, DeliveryStatusShipped, DeliveryStatusDelivered:
		return true
	default:
		return false
	}
}

// OrderItem — одна позиция заказа. PriceMinor фиксируется в момент создания
// заказа и больше не пересчитывается при изменении цены товара.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	// ProductName дублируется из каталога ради человекочитаемых сообщений об ошибках.
	ProductName string
	Quantity    int32
	PriceMinor  int64
}

// Order — иммутабельный снимок корзины. После создания меняются только
// Status (через reconciliation или sweeper) и DeliveryStatus (администратором).
type Order struct {
	ID int64
	// UserID задан для заказов зарегистрированных пользователей, иначе nil.
	UserID *int64
	// GuestEmail задан только для чисто гостевых заказов. Ровно одно из
	// полей UserID/GuestEmail должно быть установлено.
	GuestEmail string
	// CustomerEmail — email для платёжного шлюза: users.email либо GuestEmail.
	CustomerEmail     string
	ShippingAddress   string
	RegionID          *int64
	CommuneID         *int64
	Items             []OrderItem
	ShippingCostMinor int64
	TotalMinor        int64
	Status            OrderStatus
	DeliveryStatus    DeliveryStatus
	CreatedAt         time.Time
	// ExpiresAt — дедлайн оплаты; после него sweeper переводит PENDING → CANCELLED.
	ExpiresAt time.Time
}

// SubtotalMinor возвращает сумму позиций без доставки.
func (o *Order) SubtotalMinor() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += int64(item.Quantity) * item.PriceMinor
	}
	return sum
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	hasUser := o.UserID != nil
	hasGuest := o.GuestEmail != ""
	if hasUser == hasGuest {
		errs = append(errs, ErrInvalidGuestData)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrEmptyCart)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
	}
	if o.SubtotalMinor()+o.ShippingCostMinor != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// Expired сообщает, просрочен ли платёжный дедлайн на момент now.
func (o *Order) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}
