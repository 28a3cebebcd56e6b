package telegram_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/notify/telegram"
	"github.com/tigerroll/weather-etl/internal/testutil"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

const token = "123456:test-token"

// memoryRegistry is an in-memory SubscriberRegistry.
type memoryRegistry struct {
	mu      sync.Mutex
	chats   map[int64]bool
	offsets map[string]int
	listErr error
	// addFailures makes that many Add calls fail before any succeeds.
	addFailures int
}

func newMemoryRegistry(ids ...int64) *memoryRegistry {
	r := &memoryRegistry{chats: map[int64]bool{}, offsets: map[string]int{}}
	for _, id := range ids {
		r.chats[id] = true
	}
	return r
}

func (r *memoryRegistry) Add(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addFailures > 0 {
		r.addFailures--
		return errors.New("database is locked")
	}
	r.chats[chatID] = true
	return nil
}

func (r *memoryRegistry) List(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	ids := make([]int64, 0, len(r.chats))
	for id := range r.chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memoryRegistry) Offset(ctx context.Context, bot string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offsets[bot], nil
}

func (r *memoryRegistry) SaveOffset(ctx context.Context, bot string, offset int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offsets[bot] = offset
	return nil
}

func newConfig(baseURL, botToken string) *config.Config {
	cfg := config.NewConfig()
	cfg.ETL.Notification.BaseURL = baseURL
	cfg.ETL.Notification.BotToken = botToken
	cfg.ETL.Notification.Timeout = 2 * time.Second
	return cfg
}

var summary = &model.DailySummary{
	City:               "Samara",
	Date:               time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	TempMin:            1,
	TempMax:            8.4,
	TempAvg:            4.7,
	PrecipitationTotal: 3.2,
}

func TestFormatMessage(t *testing.T) {
	want := "Weather forecast for tomorrow (2024-03-11)\nCity: Samara\n\nTemperature:\nMin: 1.0°C\nMax: 8.4°C\nAvg: 4.7°C\n\nPrecipitation: 3.2 mm"
	assert.Equal(t, want, telegram.FormatMessage(summary))

	negative := *summary
	negative.TempMin = -12.5
	negative.PrecipitationTotal = 0
	text := telegram.FormatMessage(&negative)
	assert.Contains(t, text, "Min: -12.5°C")
	assert.Contains(t, text, "Precipitation: 0.0 mm")
}

func TestBroadcastCountsDeliveredAndFailed(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	bot.Block(2)
	registry := newMemoryRegistry(3, 1, 2)

	tally, err := telegram.NewDispatcher(newConfig(bot.URL, token), registry).Broadcast(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, model.BroadcastTally{Delivered: 2, Failed: 1}, tally)
	assert.Equal(t, "2 delivered, 1 failed", tally.String())

	sent := bot.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{sent[0].ChatID, sent[1].ChatID, sent[2].ChatID})
	assert.Equal(t, telegram.FormatMessage(summary), sent[0].Text)
}

func TestBroadcastWithoutTokenIsNoOp(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	tally, err := telegram.NewDispatcher(newConfig(bot.URL, ""), newMemoryRegistry(1)).Broadcast(context.Background(), summary)

	assert.ErrorIs(t, err, exception.ErrNotificationDisabled)
	assert.Equal(t, model.BroadcastTally{}, tally)
	assert.Zero(t, bot.Calls())
}

func TestBroadcastWithoutSubscribersIsNoOp(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	tally, err := telegram.NewDispatcher(newConfig(bot.URL, token), newMemoryRegistry()).Broadcast(context.Background(), summary)

	assert.ErrorIs(t, err, exception.ErrNoSubscribers)
	assert.Equal(t, model.BroadcastTally{}, tally)
	assert.Zero(t, bot.Calls())
}

func TestBroadcastRegistryError(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	registry := newMemoryRegistry(1)
	registry.listErr = errors.New("database is locked")

	_, err := telegram.NewDispatcher(newConfig(bot.URL, token), registry).Broadcast(context.Background(), summary)
	assert.ErrorContains(t, err, "database is locked")
	assert.Zero(t, bot.Calls())
}

func TestSyncRegistersChatsAndAdvancesOffset(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	bot.AddMessage(100, 11)
	bot.AddMessage(101, 22)
	bot.AddMessage(102, 11)
	registry := newMemoryRegistry()
	syncer := telegram.NewSubscriberSync(newConfig(bot.URL, token), registry)

	n, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, _ := registry.List(context.Background())
	assert.Equal(t, []int64{11, 22}, ids)
	offset, _ := registry.Offset(context.Background(), "123456")
	assert.Equal(t, 103, offset)

	n, err = syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"0", "103"}, bot.Offsets())
}

func TestSyncLeavesUpdatePendingWhenRegistrationFails(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	bot.AddMessage(100, 11)
	bot.AddMessage(101, 22)
	registry := newMemoryRegistry()
	registry.addFailures = 1
	syncer := telegram.NewSubscriberSync(newConfig(bot.URL, token), registry)

	n, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	ids, _ := registry.List(context.Background())
	assert.Empty(t, ids)

	n, err = syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ids, _ = registry.List(context.Background())
	assert.Equal(t, []int64{11, 22}, ids)
	offset, _ := registry.Offset(context.Background(), "123456")
	assert.Equal(t, 102, offset)
	assert.Equal(t, []string{"0", "0"}, bot.Offsets(), "the failed update is never confirmed")
}

func TestSyncKeepsRegistryWhenAPIFails(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	bot.FailUpdates()
	registry := newMemoryRegistry(5)

	_, err := telegram.NewSubscriberSync(newConfig(bot.URL, token), registry).Sync(context.Background())
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), token), "the token never appears in errors")

	ids, _ := registry.List(context.Background())
	assert.Equal(t, []int64{5}, ids)
}

func TestSyncWithoutTokenMakesNoCall(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	n, err := telegram.NewSubscriberSync(newConfig(bot.URL, ""), newMemoryRegistry()).Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, bot.Calls())
}

func TestListenerRegistersInboundChats(t *testing.T) {
	bot := testutil.NewFakeBot(t, token)
	bot.AddMessage(7, 77)
	registry := newMemoryRegistry()
	listener := telegram.NewListener(newConfig(bot.URL, token), registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	require.Eventually(t, func() bool {
		ids, _ := registry.List(context.Background())
		return len(ids) == 1 && ids[0] == 77
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
	offset, _ := registry.Offset(context.Background(), "123456")
	assert.Equal(t, 8, offset)
}

func TestListenerRetriesFailedRegistration(t *testing.T) {
	defer telegram.SetRetryDelay(10 * time.Millisecond)()
	bot := testutil.NewFakeBot(t, token)
	bot.AddMessage(7, 77)
	registry := newMemoryRegistry()
	registry.addFailures = 2
	listener := telegram.NewListener(newConfig(bot.URL, token), registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	require.Eventually(t, func() bool {
		ids, _ := registry.List(context.Background())
		return len(ids) == 1 && ids[0] == 77
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	offsets := bot.Offsets()
	require.GreaterOrEqual(t, len(offsets), 3)
	for _, o := range offsets[:3] {
		assert.Contains(t, []string{"", "0"}, o, "update 7 is polled again until it is stored")
	}
	offset, _ := registry.Offset(context.Background(), "123456")
	assert.Equal(t, 8, offset)
}

func TestListenerDisabledWithoutToken(t *testing.T) {
	err := telegram.NewListener(newConfig("http://127.0.0.1:1", ""), newMemoryRegistry()).Run(context.Background())
	assert.ErrorIs(t, err, exception.ErrNotificationDisabled)
}
