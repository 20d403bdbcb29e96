package domain

import "time"

// MaxCartQuantity — максимум единиц товара суммарно в одной корзине.
const MaxCartQuantity = 6

// CartItem — персистентная позиция корзины зарегистрированного пользователя.
type CartItem struct {
	UserID    int64
	ProductID int64
	Quantity  int32
	UpdatedAt time.Time
}

// CartSelection — пара «товар, количество» из гостевой корзины или тела запроса.
type CartSelection struct {
	ProductID int64
	Quantity  int32
}

// ResolvedItem — позиция корзины, дополненная живым состоянием товара.
// Цена здесь ещё не зафиксирована: снапшот делается только при создании заказа.
type ResolvedItem struct {
	Product  Product
	Quantity int32
}

// TotalQuantity суммирует количество единиц по всем позициям.
func TotalQuantity(items []CartItem) int32 {
	var total int32
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
