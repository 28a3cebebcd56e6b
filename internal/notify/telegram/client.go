// Package telegram broadcasts daily summaries to Bot API subscribers and keeps the subscriber
// registry in step with inbound messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

const moduleName = "telegram"

// SubscriberRegistry is the durable chat set the notifier reads and the sync writes.
type SubscriberRegistry interface {
	Add(ctx context.Context, chatID int64) error
	List(ctx context.Context) ([]int64, error)
	Offset(ctx context.Context, bot string) (int, error)
	SaveOffset(ctx context.Context, bot string, offset int) error
}

// botClient issues Bot API calls over plain HTTP.
type botClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newBotClient(cfg config.NotificationConfig) *botClient {
	return &botClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// enabled reports whether a token is configured.
func (c *botClient) enabled() bool {
	return c.token != ""
}

// botID is the numeric prefix of the token. It keys stored offsets without persisting the secret.
func (c *botClient) botID() string {
	id, _, _ := strings.Cut(c.token, ":")
	return id
}

func (c *botClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// endpointFormat is the tgbotapi endpoint template for the configured base URL.
func (c *botClient) endpointFormat() string {
	return c.baseURL + "/bot%s/%s"
}

// getUpdates fetches pending updates from offset without long polling.
func (c *botClient) getUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("timeout", "0")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, exception.NewTerminalError(moduleName, "failed to create getUpdates request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, exception.NewRetryableError(moduleName, "getUpdates request failed", redact(err, c.token))
	}
	defer resp.Body.Close()

	var apiResp tgbotapi.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, exception.NewTerminalError(moduleName, fmt.Sprintf("failed to decode getUpdates response (status %d)", resp.StatusCode), err)
	}
	if !apiResp.Ok {
		return nil, exception.NewRetryableError(moduleName,
			fmt.Sprintf("getUpdates returned ok=false (status %d, code %d): %s", resp.StatusCode, apiResp.ErrorCode, apiResp.Description),
			exception.ErrUnexpectedStatus)
	}
	var updates []tgbotapi.Update
	if err := json.Unmarshal(apiResp.Result, &updates); err != nil {
		return nil, exception.NewTerminalError(moduleName, "failed to decode updates", err)
	}
	return updates, nil
}

// sendMessage posts text to chatID. Only HTTP 200 counts as delivered.
func (c *botClient) sendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(map[string]interface{}{"chat_id": chatID, "text": text})
	if err != nil {
		return exception.NewTerminalError(moduleName, "failed to encode sendMessage body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return exception.NewTerminalError(moduleName, "failed to create sendMessage request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return exception.NewRetryableError(moduleName, fmt.Sprintf("sendMessage to %d failed", chatID), redact(err, c.token))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("sendMessage to %d: status %d: %s", chatID, resp.StatusCode, strings.TrimSpace(string(raw))),
			exception.ErrUnexpectedStatus, false, resp.StatusCode >= 500)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// redact removes the bot token from transport errors, which quote the request URL.
func redact(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}
