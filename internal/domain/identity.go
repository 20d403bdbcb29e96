package domain

// IdentityKind различает владельца заказа: зарегистрированный пользователь
// либо гость. Третьего варианта нет, обе ветки обязаны обрабатываться явно.
type IdentityKind int

const (
	// IdentityUser — заказ от имени зарегистрированного пользователя.
	IdentityUser IdentityKind = iota + 1
	// IdentityGuest — гостевой заказ, привязанный только к email.
	IdentityGuest
)

// OrderIdentity — тегированный вариант «пользователь | гость».
// Заменяет пару nullable-полей, исключая состояние «оба заданы/оба пусты».
type OrderIdentity struct {
	Kind   IdentityKind
	UserID int64  // заполнен только для IdentityUser
	Email  string // заполнен только для IdentityGuest
}

// UserIdentity строит идентичность зарегистрированного пользователя.
func UserIdentity(userID int64) OrderIdentity {
	return OrderIdentity{Kind: IdentityUser, UserID: userID}
}

// GuestIdentity строит гостевую идентичность.
func GuestIdentity(email string) OrderIdentity {
	return OrderIdentity{Kind: IdentityGuest, Email: email}
}

// Validate проверяет согласованность варианта.
func (i OrderIdentity) Validate() error {
	switch i.Kind {
	case IdentityUser:
		if i.UserID <= 0 || i.Email != "" {
			return ErrInvalidGuestData
		}
	case IdentityGuest:
		if i.Email == "" || i.UserID != 0 {
			return ErrInvalidGuestData
		}
	default:
		return ErrInvalidGuestData
	}
	return nil
}
