package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresUpDownFlow(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if count == 0 || version == 0 {
		t.Fatalf("expected applied migrations, got version=%d count=%d", version, count)
	}

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	downVersion, downCount, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after down: %v", err)
	}
	if downCount != count-1 || downVersion >= version {
		t.Fatalf("rollback did not step back: version=%d count=%d", downVersion, downCount)
	}

	// Повторный up возвращает схему в актуальное состояние.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up again: %v", err)
	}
	finalVersion, finalCount, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("final migration status: %v", err)
	}
	if finalVersion != version || finalCount != count {
		t.Fatalf("schema did not converge: version=%d count=%d", finalVersion, finalCount)
	}
}
