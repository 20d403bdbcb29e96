package domain

import "time"

// NewAccount — данные inline-создания аккаунта во время гостевого checkout.
// Пароль приходит сюда уже захешированным: хеширование — забота сервисного слоя.
type NewAccount struct {
	Email        string
	PasswordHash string
	Name         string
	RUT          string
	Phone        string
}

// CheckoutDraft — полностью разрешённый вход транзакции создания заказа.
// Репозиторий выполняет его атомарно: либо заказ со всеми позициями и
// корректными суммами закоммичен, либо не происходит ничего.
type CheckoutDraft struct {
	Identity OrderIdentity
	// NewAccount задан, когда гость попросил создать аккаунт; пользователь
	// создаётся в той же транзакции и становится владельцем заказа.
	NewAccount *NewAccount
	// GuestItems — источник корзины для гостей. Для IdentityUser корзина
	// читается из персистентных строк пользователя и игнорирует это поле.
	GuestItems      []CartSelection
	ShippingAddress string
	RegionName      string
	CommuneName     string
	ExpiresAt       time.Time
}
