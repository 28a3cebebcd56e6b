package telegram

import (
	"context"
	"fmt"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// SubscriberSync drains pending Bot API updates into the registry.
type SubscriberSync struct {
	client   *botClient
	registry SubscriberRegistry
}

// NewSubscriberSync creates a SubscriberSync for the notification config block.
func NewSubscriberSync(cfg *config.Config, registry SubscriberRegistry) *SubscriberSync {
	return &SubscriberSync{client: newBotClient(cfg.ETL.Notification), registry: registry}
}

// Sync records the chat of every pending message and advances the stored offset past them.
// It returns the number of updates consumed. Failures to reach the API are logged and leave the
// registry unchanged; they are returned for the caller to report, never to abort a run.
// A failed registration stops the sync with the offset left at that update, so the next
// sync fetches it again instead of acknowledging it.
func (s *SubscriberSync) Sync(ctx context.Context) (int, error) {
	if !s.client.enabled() {
		return 0, nil
	}
	bot := s.client.botID()
	offset, err := s.registry.Offset(ctx, bot)
	if err != nil {
		logger.Warnf("Could not read update offset, starting from 0: %v", err)
		offset = 0
	}

	updates, err := s.client.getUpdates(ctx, offset)
	if err != nil {
		logger.Warnf("Subscriber sync skipped, keeping the stored subscriber set: %v", err)
		return 0, err
	}

	next := offset
	added, consumed := 0, 0
	var addErr error
	for _, u := range updates {
		if u.Message != nil && u.Message.Chat != nil {
			if err := s.registry.Add(ctx, u.Message.Chat.ID); err != nil {
				logger.Warnf("Could not register chat %d, update %d stays pending: %v", u.Message.Chat.ID, u.UpdateID, err)
				addErr = exception.NewRetryableError(moduleName, fmt.Sprintf("failed to register chat %d", u.Message.Chat.ID), err)
				break
			}
			added++
		}
		consumed++
		if u.UpdateID+1 > next {
			next = u.UpdateID + 1
		}
	}

	if next != offset {
		if err := s.registry.SaveOffset(ctx, bot, next); err != nil {
			logger.Warnf("Could not save update offset %d: %v", next, err)
		}
	}
	logger.Debugf("Subscriber sync: %d of %d update(s) consumed, %d chat registration(s), next offset %d.", consumed, len(updates), added, next)
	return consumed, addErr
}
