package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"file-access-ledger-go/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testEvent(seq int64) models.LedgerEvent {
	return models.LedgerEvent{
		Seq:       seq,
		Type:      models.EventPurchased,
		TokenId:   seq,
		Seller:    "seller",
		Buyer:     "buyer",
		Price:     decimal.RequireFromString("1.25"),
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublish_BacklogIsCapped(t *testing.T) {
	mr, client := setupMiniredis(t)
	publisher := NewRedisPublisher(client, "test:events", 2)
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, testEvent(1), testEvent(2), testEvent(3)))

	list, err := mr.List("test:events:backlog")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	recent, err := publisher.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[0].Seq)
	assert.Equal(t, int64(3), recent[1].Seq)
	assert.True(t, recent[1].Price.Equal(decimal.RequireFromString("1.25")))
}

func TestRecent_EmptyBacklog(t *testing.T) {
	_, client := setupMiniredis(t)
	publisher := NewRedisPublisher(client, "", 0)

	recent, err := publisher.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.Equal(t, DefaultChannel, publisher.channel)
	assert.Equal(t, DefaultBacklog, publisher.backlog)
}

func TestWatch_ReceivesPublishedEvents(t *testing.T) {
	_, client := setupMiniredis(t)
	publisher := NewRedisPublisher(client, "test:events", 10)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan models.LedgerEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- publisher.Watch(ctx, func(e models.LedgerEvent) error {
			received <- e
			return errors.New("stop")
		})
	}()

	// Publish until the subscriber is attached
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case e := <-received:
			assert.Equal(t, int64(7), e.Seq)
			assert.Equal(t, "buyer", e.Buyer)
			assert.EqualError(t, <-done, "stop")
			return
		case <-ticker.C:
			require.NoError(t, publisher.Publish(ctx, testEvent(7)))
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublish_CommandSequence(t *testing.T) {
	client, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(client, "ch", 5)
	ctx := context.Background()

	event := testEvent(9)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("ch", payload).SetVal(1)
	mock.ExpectRPush("ch:backlog", payload).SetVal(1)
	mock.ExpectLTrim("ch:backlog", -5, -1).SetVal("OK")

	assert.NoError(t, publisher.Publish(ctx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_StopsOnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(client, "ch", 5)

	event := testEvent(1)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("ch", payload).SetErr(errors.New("connection refused"))

	err = publisher.Publish(context.Background(), event, testEvent(2))
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
