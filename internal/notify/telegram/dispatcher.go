package telegram

import (
	"context"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Dispatcher sends the daily summary to every registered chat.
type Dispatcher struct {
	client   *botClient
	registry SubscriberRegistry
}

// NewDispatcher creates a Dispatcher for the notification config block.
func NewDispatcher(cfg *config.Config, registry SubscriberRegistry) *Dispatcher {
	return &Dispatcher{client: newBotClient(cfg.ETL.Notification), registry: registry}
}

// Broadcast sends one message per subscriber without retry. A failed send is counted and the
// loop moves on. With no token it returns ErrNotificationDisabled, and with no subscribers
// ErrNoSubscribers; neither makes an HTTP call.
func (d *Dispatcher) Broadcast(ctx context.Context, summary *model.DailySummary) (model.BroadcastTally, error) {
	var tally model.BroadcastTally
	if !d.client.enabled() {
		logger.Debugf("Notification disabled: no bot token configured.")
		return tally, exception.ErrNotificationDisabled
	}
	if summary == nil {
		return tally, exception.NewTerminalError(moduleName, "daily summary is nil", nil)
	}

	chatIDs, err := d.registry.List(ctx)
	if err != nil {
		return tally, err
	}
	if len(chatIDs) == 0 {
		logger.Infof("No subscribers for %s forecast.", summary.City)
		return tally, exception.ErrNoSubscribers
	}

	text := FormatMessage(summary)
	for _, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			tally.Failed += len(chatIDs) - tally.Delivered - tally.Failed
			return tally, exception.NewTerminalError(moduleName, "broadcast interrupted", err)
		}
		if err := d.client.sendMessage(ctx, chatID, text); err != nil {
			tally.Failed++
			logger.Warnf("Failed to send %s forecast: %v", summary.City, err)
			continue
		}
		tally.Delivered++
	}
	logger.Infof("Sent %s forecast to %d/%d subscriber(s).", summary.City, tally.Delivered, len(chatIDs))
	return tally, nil
}
