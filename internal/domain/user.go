package domain

import "time"

// User — минимальная проекция пользователя, нужная checkout-сервису.
// Аутентификация и выдача токенов остаются за внешним auth-сервисом.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	RUT          string
	Phone        string
	CreatedAt    time.Time
}

// Region — регион доставки; чисто информационное поле заказа.
type Region struct {
	ID   int64
	Name string
}

// Commune — коммуна доставки. Определяет стоимость доставки:
// nil FixedShippingCostMinor означает «курьер по тарифу получателя», то есть 0 в заказе.
type Commune struct {
	ID                     int64
	RegionID               int64
	Name                   string
	FixedShippingCostMinor *int64
	DispatchAvailable      bool
}

// ShippingCostMinor возвращает стоимость доставки, которую несёт заказ.
func (c *Commune) ShippingCostMinor() int64 {
	if c.FixedShippingCostMinor == nil {
		return 0
	}
	return *c.FixedShippingCostMinor
}
