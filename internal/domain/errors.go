package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего адреса доставки при оформлении заказа.
	ErrShippingAddressRequired = errors.New("shipping_address is required")
	// Ошибка отсутствующего способа оплаты при оформлении заказа.
	ErrPaymentMethodRequired = errors.New("payment_method is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (< 1).
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")

	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOfferNotFound возвращается, если акция не найдена.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartLineNotFound возвращается при изменении количества несуществующей позиции корзины.
	ErrCartLineNotFound = errors.New("cart line not found")

	// ErrOfferInvalid — акция неактивна, исчерпана или вне окна действия.
	// Для клиента это жёсткий отказ: скидку получить нельзя.
	ErrOfferInvalid = errors.New("offer is not valid or has expired")
	// ErrOfferAlreadyClaimed — пользователь уже активировал эту акцию.
	// Мягкий исход: товары со скидкой уже лежат в корзине с первой активации.
	ErrOfferAlreadyClaimed = errors.New("offer already claimed by this user")

	// ErrEmptyCart возвращается при попытке оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock — базовая ошибка нехватки остатка; конкретный товар
	// указывает InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderTransitionInvalid — переход статуса заказа не разрешён таблицей переходов.
	ErrOrderTransitionInvalid = errors.New("order status transition is not allowed")
)

// InsufficientStockError уточняет, какого товара не хватило и сколько доступно.
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Unwrap позволяет сверять ошибку через errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
