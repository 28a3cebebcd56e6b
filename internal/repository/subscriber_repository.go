package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// subscriberDDL maps database type to the statements creating the registry tables.
var subscriberDDL = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS telegram_subscribers (
    chat_id INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS telegram_offsets (
    bot TEXT PRIMARY KEY,
    update_offset INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS telegram_subscribers (
    chat_id BIGINT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS telegram_offsets (
    bot VARCHAR(64) PRIMARY KEY,
    update_offset BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS telegram_subscribers (
    chat_id BIGINT PRIMARY KEY,
    created_at DATETIME(3) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS telegram_offsets (
    bot VARCHAR(64) PRIMARY KEY,
    update_offset BIGINT NOT NULL DEFAULT 0,
    updated_at DATETIME(3) NOT NULL
)`,
	},
	"clickhouse": {
		`CREATE TABLE IF NOT EXISTS telegram_subscribers (
    chat_id Int64,
    created_at DateTime64(3)
) ENGINE = ReplacingMergeTree
ORDER BY chat_id`,
		`CREATE TABLE IF NOT EXISTS telegram_offsets (
    bot String,
    update_offset Int64,
    updated_at DateTime64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY bot`,
	},
}

// SubscriberStore is the durable set of chat IDs plus the last processed getUpdates offset.
type SubscriberStore struct {
	dbResolver database.DBConnectionResolver
	dbName     string
	now        func() time.Time
}

// NewSubscriberStore creates a SubscriberStore on the registry connection.
func NewSubscriberStore(cfg *config.Config, dbResolver database.DBConnectionResolver) *SubscriberStore {
	return &SubscriberStore{dbResolver: dbResolver, dbName: cfg.ETL.Notification.RegistryDBRef, now: time.Now}
}

func (s *SubscriberStore) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := s.dbResolver.ResolveDBConnection(ctx, s.dbName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", s.dbName), err, false, true)
	}
	return conn, nil
}

// EnsureSchema creates the registry tables if they do not exist.
func (s *SubscriberStore) EnsureSchema(ctx context.Context) error {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return err
	}
	statements, ok := subscriberDDL[conn.Type()]
	if !ok {
		return exception.NewBatchErrorf(moduleName, "no subscriber DDL for database type '%s'", conn.Type())
	}
	for _, stmt := range statements {
		if _, err := conn.ExecuteRaw(ctx, stmt); err != nil {
			return exception.NewTerminalError(moduleName, "failed to create subscriber tables", err)
		}
	}
	logger.Debugf("Ensured subscriber tables on '%s'.", s.dbName)
	return nil
}

// Add registers chatID. Adding a known chat is a no-op.
func (s *SubscriberStore) Add(ctx context.Context, chatID int64) error {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return err
	}
	sub := &model.Subscriber{ChatID: chatID, CreatedAt: s.now()}
	if conn.Type() == "clickhouse" {
		_, err = conn.ExecuteUpdate(ctx, sub, "CREATE", sub.TableName(), nil)
	} else {
		_, err = conn.ExecuteUpsert(ctx, sub, sub.TableName(), []string{"chat_id"}, nil)
	}
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to add subscriber %d", chatID), err, false, true)
	}
	return nil
}

// List returns every chat ID in ascending order. A missing table reads as empty.
func (s *SubscriberStore) List(ctx context.Context) ([]int64, error) {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	var subs []model.Subscriber
	if err := conn.ExecuteQueryAdvanced(ctx, &subs, nil, "chat_id ASC", 0); err != nil {
		if conn.IsTableNotExistError(err) {
			return []int64{}, nil
		}
		return nil, exception.NewBatchError(moduleName, "failed to list subscribers", err, false, true)
	}
	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		if n := len(ids); n > 0 && ids[n-1] == sub.ChatID {
			continue
		}
		ids = append(ids, sub.ChatID)
	}
	return ids, nil
}

// Count returns the number of subscribers.
func (s *SubscriberStore) Count(ctx context.Context) (int, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Offset returns the next getUpdates offset for bot, 0 when none was saved.
func (s *SubscriberStore) Offset(ctx context.Context, bot string) (int, error) {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}
	var rows []model.UpdateOffset
	if err := conn.ExecuteQueryAdvanced(ctx, &rows, map[string]interface{}{"bot": bot}, "updated_at DESC", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return 0, nil
		}
		return 0, exception.NewBatchError(moduleName, "failed to read update offset", err, false, true)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Offset, nil
}

// SaveOffset stores the next getUpdates offset for bot.
func (s *SubscriberStore) SaveOffset(ctx context.Context, bot string, offset int) error {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return err
	}
	row := &model.UpdateOffset{Bot: bot, Offset: offset, UpdatedAt: s.now()}
	if conn.Type() == "clickhouse" {
		_, err = conn.ExecuteUpdate(ctx, row, "CREATE", row.TableName(), nil)
	} else {
		_, err = conn.ExecuteUpsert(ctx, row, row.TableName(), []string{"bot"}, []string{"update_offset", "updated_at"})
	}
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save update offset %d", offset), err, false, true)
	}
	return nil
}
