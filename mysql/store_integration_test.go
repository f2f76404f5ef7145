//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmie/chatrelay"
	"github.com/velmie/chatrelay/internal/testutil"
	"github.com/velmie/chatrelay/mysql"
)

func TestStoreEnqueueFetchMarkIntegration(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQL(t, ctx)
	store := setupStore(t, ctx, env.DB)

	ids := insertMessages(t, ctx, env.DB, store, "first", "second", "third")

	unsent, err := store.FetchUnsent(ctx)
	require.NoError(t, err)
	require.Equal(t, ids, collectIDs(unsent))
	require.Equal(t, "first", unsent[0].Content)
	require.False(t, unsent[0].Sent)
	require.False(t, unsent[0].CreatedAt.IsZero())

	require.NoError(t, store.MarkSent(ctx, ids[1]))
	// Second mark is a no-op, not an error.
	require.NoError(t, store.MarkSent(ctx, ids[1]))

	unsent, err = store.FetchUnsent(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ids[0], ids[2]}, collectIDs(unsent))

	count, err := store.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestStoreMarkSentNotFoundIntegration(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQL(t, ctx)
	store := setupStore(t, ctx, env.DB)

	err := store.MarkSent(ctx, "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, chatrelay.ErrNotFound))
}

func TestStoreFetchLimitIntegration(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQL(t, ctx)
	setupStore(t, ctx, env.DB)

	store, err := mysql.NewStore(env.DB, mysql.WithFetchLimit(2))
	require.NoError(t, err)
	ids := insertMessages(t, ctx, env.DB, store, "a", "b", "c")

	unsent, err := store.FetchUnsent(ctx)
	require.NoError(t, err)
	require.Equal(t, ids[:2], collectIDs(unsent))
}

func TestSchedulerTickIntegration(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQL(t, ctx)
	store := setupStore(t, ctx, env.DB)
	ids := insertMessages(t, ctx, env.DB, store, "ok-1", "fail", "ok-2")

	var sent []string
	sink := chatrelay.SinkFunc(func(_ context.Context, msg chatrelay.Message) (chatrelay.Delivery, error) {
		sent = append(sent, msg.ID)
		if msg.Content == "fail" {
			return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "timeout"}
		}
		return chatrelay.Delivery{}, nil
	})

	result, err := chatrelay.NewScheduler(store, sink).Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ids, sent)
	require.Equal(t, 2, result.Delivered)
	require.Equal(t, 1, result.Failed)

	require.True(t, isSent(t, ctx, env.DB, ids[0]))
	require.False(t, isSent(t, ctx, env.DB, ids[1]))
	require.True(t, isSent(t, ctx, env.DB, ids[2]))
}

func setupStore(t *testing.T, ctx context.Context, db *sql.DB) *mysql.Store {
	t.Helper()
	store, err := mysql.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func insertMessages(t *testing.T, ctx context.Context, db *sql.DB, store *mysql.Store, contents ...string) []string {
	t.Helper()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	ids := make([]string, 0, len(contents))
	for i, content := range contents {
		id, err := store.Enqueue(ctx, tx, chatrelay.Message{
			ChatID:        fmt.Sprintf("u2i-%d", i),
			ItemID:        "item-1",
			AuthorID:      "author-1",
			ChannelUserID: "user-1",
			Content:       content,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, tx.Commit())
	return ids
}

func collectIDs(msgs []chatrelay.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func isSent(t *testing.T, ctx context.Context, db *sql.DB, id string) bool {
	t.Helper()
	var sent bool
	err := db.QueryRowContext(ctx, "SELECT sent FROM outbox_messages WHERE id = ?", id).Scan(&sent)
	require.NoError(t, err)
	return sent
}
