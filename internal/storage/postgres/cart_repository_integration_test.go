package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/evergreenattire/checkout/internal/domain"
)

func TestCartRepository_PostgresMergeFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()

	cart, err := repo.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("new cart must be empty: %+v", cart)
	}

	if _, err := repo.MergeLine(ctx, "user-1", "p1", 2, 1000); err != nil {
		t.Fatalf("merge line p1: %v", err)
	}
	cart, err = repo.MergeLine(ctx, "user-1", "p1", 1, 800)
	if err != nil {
		t.Fatalf("merge line p1 again: %v", err)
	}

	want := []domain.CartLine{{ProductID: "p1", Qty: 3, PriceMinor: 800}}
	ignoreTime := cmpopts.IgnoreFields(domain.CartLine{}, "AddedAt")
	if diff := cmp.Diff(want, cart.Lines, ignoreTime); diff != "" {
		t.Fatalf("unexpected cart lines (-want +got):\n%s", diff)
	}

	if _, err := repo.MergeLine(ctx, "user-1", "p2", 1, 2500); err != nil {
		t.Fatalf("merge line p2: %v", err)
	}
	cart, err = repo.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Lines) != 2 || cart.TotalMinor() != 3*800+2500 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestCartRepository_PostgresRemoveSetQuantityClear(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()

	if _, err := repo.MergeLine(ctx, "user-2", "p1", 1, 1000); err != nil {
		t.Fatalf("merge line: %v", err)
	}
	if _, err := repo.MergeLine(ctx, "user-2", "p2", 1, 2000); err != nil {
		t.Fatalf("merge line: %v", err)
	}

	cart, err := repo.SetQuantity(ctx, "user-2", "p1", 5)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	idx := cart.LineIndex("p1")
	if idx < 0 || cart.Lines[idx].Qty != 5 {
		t.Fatalf("unexpected quantity: %+v", cart)
	}

	if _, err := repo.SetQuantity(ctx, "user-2", "missing", 2); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}
	if _, err := repo.SetQuantity(ctx, "user-2", "p1", 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	cart, err = repo.RemoveLine(ctx, "user-2", "p1")
	if err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].ProductID != "p2" {
		t.Fatalf("unexpected cart after remove: %+v", cart)
	}

	// Повторное удаление — no-op.
	if _, err := repo.RemoveLine(ctx, "user-2", "p1"); err != nil {
		t.Fatalf("remove missing line: %v", err)
	}

	if err := repo.Clear(ctx, "user-2"); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	cart, err = repo.GetOrCreate(ctx, "user-2")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("cart must be empty after clear: %+v", cart)
	}
}
