package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"catalog-crawler/internal/catalog"
)

func TestUpsertStoreEntity(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)

	mock.ExpectExec("INSERT INTO stores").
		WithArgs("511", []byte(`{"id":"511","postal_code":"K1A0B1"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Upsert(context.Background(), catalog.KindStore, catalog.Entity{
		"id":          "511",
		"postal_code": "K1A0B1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertInventoryEntity(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)

	mock.ExpectExec("INSERT INTO inventories").
		WithArgs("p1", "s1", int64(4), "crawl-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Upsert(context.Background(), catalog.KindInventory, catalog.Entity{
		"product_id": "p1",
		"store_id":   "s1",
		"quantity":   int64(4),
		"crawl_id":   "crawl-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsIncompleteEntities(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)
	ctx := context.Background()

	require.Error(t, store.Upsert(ctx, catalog.KindStore, catalog.Entity{"name": "x"}))
	require.Error(t, store.Upsert(ctx, catalog.KindInventory, catalog.Entity{"product_id": "p"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDead(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)

	mock.ExpectExec("UPDATE products SET is_dead = TRUE").
		WithArgs([]string{"2", "5"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, store.MarkDead(context.Background(), catalog.KindProduct, []string{"2", "5"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeadEmptySetIssuesNoUpdate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)
	require.NoError(t, store.MarkDead(context.Background(), catalog.KindProduct, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOrphanInventoryDead(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)

	mock.ExpectExec("UPDATE inventories").
		WithArgs("crawl-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	require.NoError(t, store.MarkOrphanInventoryDead(context.Background(), "crawl-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentIDs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewEntityStoreWithPool(mock)

	mock.ExpectQuery("SELECT id FROM stores").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("1").AddRow("3"))

	ids, err := store.CurrentIDs(context.Background(), catalog.KindStore)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"1": true, "3": true}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreSaveAndLoad(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewSessionStoreWithPool(mock)
	ctx := context.Background()

	session := catalog.NewSession("crawl-1", time.Unix(1700000000, 0).UTC())
	session.Status = catalog.SessionDraining

	mock.ExpectExec("INSERT INTO crawl_sessions").
		WithArgs("crawl-1", "draining", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(ctx, session))

	state := []byte(`{"id":"crawl-1","status":"draining","started_at":"2023-11-14T22:13:20Z","queue":{"jobs":null},"crawled":{},"aggregates":{},"events":null}`)
	mock.ExpectQuery("SELECT state FROM crawl_sessions").
		WithArgs("crawl-1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(state))

	loaded, ok, err := store.Load(ctx, "crawl-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, catalog.SessionDraining, loaded.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreLoadMissing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewSessionStoreWithPool(mock)

	mock.ExpectQuery("SELECT state FROM crawl_sessions").
		WithArgs("absent").
		WillReturnRows(pgxmock.NewRows([]string{"state"}))

	_, ok, err := store.Load(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
