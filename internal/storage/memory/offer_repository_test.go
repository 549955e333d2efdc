package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evergreenattire/checkout/internal/domain"
)

func seedOffer(t *testing.T, repo domain.OfferRepository, id string) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.Create(context.Background(), domain.Offer{
		ID:              id,
		Title:           "Weekend Sale",
		DiscountPercent: 20,
		ProductIDs:      []string{"product-1"},
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
		IsActive:        true,
		MaxUses:         10,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}
}

func TestOfferRepository_Claim(t *testing.T) {
	repo := NewOfferRepository()
	ctx := context.Background()
	seedOffer(t, repo, "offer-1")

	offer, err := repo.Claim(ctx, "offer-1", "user-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if offer.UsedCount != 1 {
		t.Fatalf("expected used count 1, got %d", offer.UsedCount)
	}
	if !offer.HasClaimed("user-1") {
		t.Fatal("user-1 must be in the claim ledger")
	}
}

func TestOfferRepository_Claim_SecondClaimDoesNotDoubleCount(t *testing.T) {
	repo := NewOfferRepository()
	ctx := context.Background()
	seedOffer(t, repo, "offer-1")

	if _, err := repo.Claim(ctx, "offer-1", "user-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	offer, err := repo.Claim(ctx, "offer-1", "user-1")
	if !errors.Is(err, domain.ErrOfferAlreadyClaimed) {
		t.Fatalf("expected ErrOfferAlreadyClaimed, got %v", err)
	}
	if offer.UsedCount != 1 {
		t.Fatalf("used count must stay 1, got %d", offer.UsedCount)
	}
	if len(offer.ClaimedBy) != 1 {
		t.Fatalf("claim ledger must keep a single entry, got %d", len(offer.ClaimedBy))
	}
}

// Конкурентные активации одним пользователем дают ровно одну запись журнала.
func TestOfferRepository_Claim_ConcurrentSameUser(t *testing.T) {
	repo := NewOfferRepository()
	ctx := context.Background()
	seedOffer(t, repo, "offer-1")

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Claim(ctx, "offer-1", "user-1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", succeeded)
	}

	offer, err := repo.Get(ctx, "offer-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if offer.UsedCount != 1 || len(offer.ClaimedBy) != 1 {
		t.Fatalf("ledger corrupted: used=%d entries=%d", offer.UsedCount, len(offer.ClaimedBy))
	}
}

func TestOfferRepository_Claim_UsageCapExhausted(t *testing.T) {
	repo := NewOfferRepository()
	ctx := context.Background()
	seedCappedOffer(t, repo, "offer-cap", 1)

	if _, err := repo.Claim(ctx, "offer-cap", "user-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	if _, err := repo.Claim(ctx, "offer-cap", "user-2"); !errors.Is(err, domain.ErrOfferInvalid) {
		t.Fatalf("expected ErrOfferInvalid for exhausted cap, got %v", err)
	}

	// Повтор от победителя остаётся идемпотентным, лимит его не перекрывает.
	if _, err := repo.Claim(ctx, "offer-cap", "user-1"); !errors.Is(err, domain.ErrOfferAlreadyClaimed) {
		t.Fatalf("expected ErrOfferAlreadyClaimed, got %v", err)
	}
}

// Встречные активации разными пользователями не пробивают лимит: проверка
// лимита и запись в журнал выполняются атомарно, под одним локом.
func TestOfferRepository_Claim_UsageCapUnderConcurrency(t *testing.T) {
	repo := NewOfferRepository()
	ctx := context.Background()
	seedCappedOffer(t, repo, "offer-cap", 1)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := repo.Claim(ctx, "offer-cap", userID)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, domain.ErrOfferInvalid):
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one accepted claim, got %d", accepted)
	}

	offer, err := repo.Get(ctx, "offer-cap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if offer.UsedCount != 1 || len(offer.ClaimedBy) != 1 {
		t.Fatalf("usage cap breached: used=%d entries=%d", offer.UsedCount, len(offer.ClaimedBy))
	}
}

func seedCappedOffer(t *testing.T, repo domain.OfferRepository, id string, maxUses int32) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.Create(context.Background(), domain.Offer{
		ID:              id,
		Title:           "Last Slots",
		DiscountPercent: 20,
		ProductIDs:      []string{"product-1"},
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
		IsActive:        true,
		MaxUses:         maxUses,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}
}

func TestOfferRepository_Claim_UnknownOffer(t *testing.T) {
	repo := NewOfferRepository()

	if _, err := repo.Claim(context.Background(), "ghost", "user-1"); !errors.Is(err, domain.ErrOfferNotFound) {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}
}
