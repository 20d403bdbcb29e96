package domain

import "errors"

var (
	// Ошибка отсутствующего пользователя при оформлении заказа.
	ErrUserNotFound = errors.New("user not found")
	// Ошибка повторной регистрации email при inline-создании аккаунта.
	ErrEmailTaken = errors.New("email is already registered")
	// Ошибка неполных данных гостевого заказа (email, адрес или корзина).
	ErrInvalidGuestData = errors.New("guest email and shipping address are required")
	// Ошибка пустой корзины при оформлении заказа.
	ErrEmptyCart = errors.New("cart is empty")
	// Ошибка отсутствующего товара.
	ErrProductNotFound = errors.New("product not found")
	// Ошибка превышения лимита покупки на товар.
	ErrPurchaseLimitExceeded = errors.New("purchase limit exceeded")
	// Ошибка нехватки остатка на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// Ошибка превышения общего лимита позиций в корзине.
	ErrCartLimitExceeded = errors.New("cart quantity limit exceeded")
	// Ошибка отсутствующей позиции корзины.
	ErrCartItemNotFound = errors.New("cart item not found")
	// Ошибка неизвестной коммуны при расчёте доставки.
	ErrCommuneNotFound = errors.New("commune not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending возвращается при попытке оплатить уже завершённый заказ.
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrOrderStateConflict сигнализирует о недопустимом переходе статуса заказа.
	ErrOrderStateConflict = errors.New("order status transition is not allowed")
	// ErrMalformedReference возвращается, если commerce-order не соответствует формату.
	ErrMalformedReference = errors.New("malformed commerce order reference")
	// ErrGatewayUnavailable — транспортная или протокольная ошибка платёжного шлюза.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrTransactionNotFound возвращается, если платёжная транзакция не найдена по токену.
	ErrTransactionNotFound = errors.New("payment transaction not found")
	// Ошибка отсутствующего адреса доставки.
	ErrShippingAddressRequired = errors.New("shipping address is required")
	// Ошибка некорректного количества товара (<= 0).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка неизвестного логистического статуса.
	ErrInvalidDeliveryStatus = errors.New("unknown delivery status")
	// Ошибка несоответствия суммы заказа сумме позиций и доставки.
	ErrTotalMismatch = errors.New("order total does not match items sum plus shipping")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsConflict проверяет, относится ли ошибка к конфликтам, требующим
// изменения входных данных клиентом.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrPurchaseLimitExceeded) ||
		errors.Is(err, ErrCartLimitExceeded) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrOrderNotPending) ||
		errors.Is(err, ErrOrderStateConflict)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующим сущностям.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrCommuneNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsValidation проверяет, относится ли ошибка к некорректному входу запроса.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidGuestData) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrShippingAddressRequired) ||
		errors.Is(err, ErrQuantityInvalid) ||
		errors.Is(err, ErrInvalidDeliveryStatus) ||
		errors.Is(err, ErrMalformedReference)
}
