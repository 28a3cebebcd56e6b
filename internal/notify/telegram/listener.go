package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// longPollTimeout is the getUpdates timeout in seconds used by the listener.
const longPollTimeout = 30

// retryDelay separates attempts after a failed poll or registration.
var retryDelay = 3 * time.Second

// botLogger routes tgbotapi's internal logging through the application logger.
type botLogger struct{}

func (botLogger) Println(v ...interface{}) {
	logger.Warnf("telegram: %s", fmt.Sprint(v...))
}

func (botLogger) Printf(format string, v ...interface{}) {
	logger.Warnf("telegram: "+format, v...)
}

var setBotLogger sync.Once

// Listener long-polls the Bot API and registers the chat of every inbound message.
// It replaces the per-run SubscriberSync in serve mode; the two must not poll the same bot.
type Listener struct {
	cfg      config.NotificationConfig
	client   *botClient
	registry SubscriberRegistry
}

// NewListener creates a Listener for the notification config block.
func NewListener(cfg *config.Config, registry SubscriberRegistry) *Listener {
	return &Listener{cfg: cfg.ETL.Notification, client: newBotClient(cfg.ETL.Notification), registry: registry}
}

// Run polls until ctx is done, then returns nil.
func (l *Listener) Run(ctx context.Context) error {
	if !l.client.enabled() {
		return exception.ErrNotificationDisabled
	}
	setBotLogger.Do(func() { _ = tgbotapi.SetLogger(botLogger{}) })

	httpClient := &http.Client{Timeout: l.cfg.Timeout + longPollTimeout*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(l.cfg.BotToken, l.client.endpointFormat(), httpClient)
	if err != nil {
		return exception.NewRetryableError(moduleName, "failed to connect to the Bot API", redact(err, l.cfg.BotToken))
	}
	logger.Infof("Listening for subscribers as @%s.", bot.Self.UserName)

	offset, err := l.registry.Offset(ctx, l.client.botID())
	if err != nil {
		logger.Warnf("Could not read update offset, starting from 0: %v", err)
		offset = 0
	}

	// Updates are polled by hand: the offset sent to the API only moves past an update once its
	// chat is stored, so a failed registration is delivered again.
	for ctx.Err() == nil {
		u := tgbotapi.NewUpdate(offset)
		u.Timeout = longPollTimeout
		updates, err := bot.GetUpdates(u)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warnf("Polling for updates failed, retrying in %s: %v", retryDelay, redact(err, l.cfg.BotToken))
			_ = retry.ContextSleep(ctx, retryDelay)
			continue
		}
		for _, update := range updates {
			if err := l.handle(context.WithoutCancel(ctx), update); err != nil {
				logger.Warnf("Update %d stays pending, retrying in %s: %v", update.UpdateID, retryDelay, err)
				_ = retry.ContextSleep(ctx, retryDelay)
				break
			}
			offset = update.UpdateID + 1
		}
	}
	logger.Infof("Subscriber listener stopped.")
	return nil
}

// handle stores the chat of update and then the offset past it.
func (l *Listener) handle(ctx context.Context, update tgbotapi.Update) error {
	next := update.UpdateID + 1
	if update.Message != nil && update.Message.Chat != nil {
		chatID := update.Message.Chat.ID
		if err := l.registry.Add(ctx, chatID); err != nil {
			return fmt.Errorf("register chat %d: %w", chatID, err)
		}
		logger.Debugf("Registered chat %d from update %d.", chatID, update.UpdateID)
	}
	if err := l.registry.SaveOffset(ctx, l.client.botID(), next); err != nil {
		logger.Warnf("Could not save update offset %d: %v", next, err)
	}
	return nil
}
