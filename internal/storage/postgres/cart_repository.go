package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evergreenattire/checkout/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return domain.Cart{}, fmt.Errorf("ensure cart: %w", err)
	}

	return r.load(ctx, userID)
}

// MergeLine добавляет позицию одним upsert: существующая строка накапливает
// количество и получает новую цену.
func (r *cartRepository) MergeLine(ctx context.Context, userID, productID string, qty int32, priceMinor int64) (domain.Cart, error) {
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return domain.Cart{}, fmt.Errorf("ensure cart: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, product_id, qty, price_minor, added_at)
		VALUES ($1,$2,$3,$4,NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET qty = cart_lines.qty + EXCLUDED.qty,
		    price_minor = EXCLUDED.price_minor
	`, userID, productID, qty, priceMinor); err != nil {
		return domain.Cart{}, fmt.Errorf("merge cart line: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE carts SET updated_at = NOW() WHERE user_id = $1
	`, userID); err != nil {
		return domain.Cart{}, fmt.Errorf("touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Cart{}, fmt.Errorf("commit merge line: %w", err)
	}

	return r.load(ctx, userID)
}

func (r *cartRepository) RemoveLine(ctx context.Context, userID, productID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Отсутствие позиции — no-op.
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_lines
		WHERE user_id = $1 AND product_id = $2
	`, userID, productID); err != nil {
		return domain.Cart{}, fmt.Errorf("remove cart line: %w", err)
	}

	return r.GetOrCreate(ctx, userID)
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_lines
		SET qty = $1
		WHERE user_id = $2 AND product_id = $3
	`, qty, userID, productID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("set cart line quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Cart{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Cart{}, domain.ErrCartLineNotFound
	}

	return r.load(ctx, userID)
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_lines WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		UPDATE carts SET updated_at = NOW() WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	return nil
}

func (r *cartRepository) load(ctx context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Корзина создаётся лениво; до первого обращения её просто нет.
			return domain.Cart{UserID: userID}, nil
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, qty, price_minor, added_at
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY added_at ASC, product_id ASC
	`, userID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	cart.Lines = make([]domain.CartLine, 0)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Qty, &line.PriceMinor, &line.AddedAt); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart lines: %w", err)
	}

	return cart, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
