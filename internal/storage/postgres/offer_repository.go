package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evergreenattire/checkout/internal/domain"
)

type offerRepository struct {
	db *sql.DB
}

// NewOfferRepository создаёт PostgreSQL-реализацию OfferRepository.
func NewOfferRepository(store *Store) domain.OfferRepository {
	return &offerRepository{db: store.DB()}
}

func (r *offerRepository) Get(ctx context.Context, id string) (domain.Offer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	offer, err := r.loadOffer(ctx, r.db, id)
	if err != nil {
		return domain.Offer{}, err
	}

	return offer, nil
}

func (r *offerRepository) Create(ctx context.Context, offer domain.Offer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO offers (
			id, title, discount_percent, valid_from, valid_until,
			is_active, max_uses, used_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		offer.ID, offer.Title, offer.DiscountPercent, offer.ValidFrom, offer.ValidUntil,
		offer.IsActive, offer.MaxUses, offer.UsedCount, offer.CreatedAt, offer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}

	for i, productID := range offer.ProductIDs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO offer_products (offer_id, position, product_id)
			VALUES ($1,$2,$3)
		`, offer.ID, i, productID); err != nil {
			return fmt.Errorf("insert offer product: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create offer: %w", err)
	}

	return nil
}

// Claim атомарно дописывает пользователя в журнал активаций. Гонку
// «проверили — записали» по журналу исключает уникальный ключ
// (offer_id, user_id): проигравший INSERT получает unique violation.
// Лимит активаций держит условный инкремент used_count в той же транзакции:
// проигравший гонку за последний слот получает ноль обновлённых строк.
func (r *offerRepository) Claim(ctx context.Context, offerID, userID string) (domain.Offer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists string
	err = tx.QueryRowContext(ctx, `SELECT id FROM offers WHERE id = $1`, offerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		err = domain.ErrOfferNotFound
		return domain.Offer{}, err
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("check offer exists: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO offer_claims (offer_id, user_id, claimed_at)
		VALUES ($1,$2,NOW())
	`, offerID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			_ = tx.Rollback()
			err = nil
			offer, loadErr := r.loadOffer(ctx, r.db, offerID)
			if loadErr != nil {
				return domain.Offer{}, loadErr
			}
			return offer, domain.ErrOfferAlreadyClaimed
		}
		return domain.Offer{}, fmt.Errorf("insert offer claim: %w", err)
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE offers
		SET used_count = used_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND (max_uses = 0 OR used_count < max_uses)
	`, offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("bump offer used count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Offer{}, fmt.Errorf("bump offer used count: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOfferInvalid
		return domain.Offer{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Offer{}, fmt.Errorf("commit claim: %w", err)
	}

	return r.loadOffer(ctx, r.db, offerID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *offerRepository) loadOffer(ctx context.Context, q queryer, id string) (domain.Offer, error) {
	var offer domain.Offer
	err := q.QueryRowContext(ctx, `
		SELECT id, title, discount_percent, valid_from, valid_until,
		       is_active, max_uses, used_count, created_at, updated_at
		FROM offers
		WHERE id = $1
	`, id).Scan(
		&offer.ID, &offer.Title, &offer.DiscountPercent, &offer.ValidFrom, &offer.ValidUntil,
		&offer.IsActive, &offer.MaxUses, &offer.UsedCount, &offer.CreatedAt, &offer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offer{}, domain.ErrOfferNotFound
		}
		return domain.Offer{}, fmt.Errorf("select offer: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT product_id
		FROM offer_products
		WHERE offer_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("load offer products: %w", err)
	}
	defer rows.Close()

	offer.ProductIDs = make([]string, 0)
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return domain.Offer{}, fmt.Errorf("scan offer product: %w", err)
		}
		offer.ProductIDs = append(offer.ProductIDs, productID)
	}
	if err := rows.Err(); err != nil {
		return domain.Offer{}, fmt.Errorf("iterate offer products: %w", err)
	}

	claims, err := q.QueryContext(ctx, `
		SELECT user_id, claimed_at
		FROM offer_claims
		WHERE offer_id = $1
		ORDER BY claimed_at ASC, user_id ASC
	`, id)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("load offer claims: %w", err)
	}
	defer claims.Close()

	offer.ClaimedBy = make([]domain.OfferClaim, 0)
	for claims.Next() {
		var claim domain.OfferClaim
		if err := claims.Scan(&claim.UserID, &claim.ClaimedAt); err != nil {
			return domain.Offer{}, fmt.Errorf("scan offer claim: %w", err)
		}
		offer.ClaimedBy = append(offer.ClaimedBy, claim)
	}
	if err := claims.Err(); err != nil {
		return domain.Offer{}, fmt.Errorf("iterate offer claims: %w", err)
	}

	return offer, nil
}

var _ domain.OfferRepository = (*offerRepository)(nil)
