package domain

import "context"

// ProductRepository описывает требования ядра к каталогу: чтение товара и
// атомарное условное списание остатка.
type ProductRepository interface {
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// Create сохраняет новый товар (используется админкой и фикстурами).
	Create(ctx context.Context, product Product) error
	// SetPrice меняет актуальную цену каталога; зафиксированные в корзинах
	// и заказах цены не затрагивает.
	SetPrice(ctx context.Context, id string, priceMinor int64) error
	// DecrementStock атомарно списывает qty единиц, если остатка хватает.
	// При нехватке возвращает InsufficientStockError, остаток не меняется.
	DecrementStock(ctx context.Context, id string, qty int32) error
}

// CartRepository — хранилище корзин, по одной на пользователя.
type CartRepository interface {
	// GetOrCreate возвращает корзину пользователя, создавая пустую при первом обращении.
	GetOrCreate(ctx context.Context, userID string) (Cart, error)
	// MergeLine добавляет товар: существующая позиция накапливает количество и
	// получает новую цену, иначе добавляется новая позиция. Повторный вызов —
	// определённое поведение, а не конфликт.
	MergeLine(ctx context.Context, userID, productID string, qty int32, priceMinor int64) (Cart, error)
	// RemoveLine удаляет позицию; отсутствие позиции — no-op, не ошибка.
	RemoveLine(ctx context.Context, userID, productID string) (Cart, error)
	// SetQuantity перезаписывает количество позиции. Количество < 1 отклоняется
	// с ErrInvalidQuantity, отсутствующая позиция — с ErrCartLineNotFound.
	SetQuantity(ctx context.Context, userID, productID string, qty int32) (Cart, error)
	// Clear опустошает корзину; сам документ корзины сохраняется для повторного использования.
	Clear(ctx context.Context, userID string) error
}

// OfferRepository — хранилище акций с атомарным журналом активаций.
type OfferRepository interface {
	// Get возвращает акцию или ErrOfferNotFound.
	Get(ctx context.Context, id string) (Offer, error)
	// Create сохраняет новую акцию (админка, фикстуры).
	Create(ctx context.Context, offer Offer) error
	// Claim атомарно дописывает пользователя в журнал активаций и увеличивает
	// счётчик использований. Повторная активация тем же пользователем возвращает
	// ErrOfferAlreadyClaimed, не меняя ни журнал, ни счётчик; исчерпанный лимит
	// активаций — ErrOfferInvalid. Реализация обязана исключать гонки
	// «проверили — записали» и для журнала, и для лимита: проверка снаружи
	// записи не защищает от встречных активаций.
	Claim(ctx context.Context, offerID, userID string) (Offer, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми, с опциональным лимитом.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// ListNeedsReconcile возвращает заказы, ожидающие ручной сверки остатков.
	ListNeedsReconcile(ctx context.Context, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}
