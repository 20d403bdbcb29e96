package domain

import "time"

// Product описывает товар каталога. Каталог ведётся внешним сервисом,
// checkout читает товары и мутирует только колонку stock (через StockLedger).
type Product struct {
	ID   int64
	Code string
	Name string
	// PriceMinor — обычная цена в минимальных денежных единицах (CLP без копеек).
	PriceMinor int64
	// OfferPriceMinor — акционная цена; действует, когда больше нуля.
	OfferPriceMinor int64
	// Stock — текущий остаток. Инвариант: никогда не опускается ниже нуля.
	Stock int32
	// PurchaseLimit — максимум единиц в одном заказе; 0 означает «без лимита».
	PurchaseLimit int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectivePriceMinor возвращает цену, по которой товар продаётся сейчас:
// акционную, если она задана и положительна, иначе обычную.
func (p *Product) EffectivePriceMinor() int64 {
	if p.OfferPriceMinor > 0 {
		return p.OfferPriceMinor
	}
	return p.PriceMinor
}
