package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// SentMessage is one sendMessage call received by FakeBot.
type SentMessage struct {
	ChatID int64
	Text   string
}

// FakeBot serves the Bot API methods the notifier uses: getMe, getUpdates and sendMessage.
type FakeBot struct {
	Token string
	URL   string

	mu        sync.Mutex
	updates   []map[string]interface{}
	offsets   []string
	sent      []SentMessage
	blocked   map[int64]bool
	updatesOK bool
	calls     int
}

// NewFakeBot starts a FakeBot for token. The server is closed on test cleanup.
func NewFakeBot(t testing.TB, token string) *FakeBot {
	t.Helper()
	fb := &FakeBot{Token: token, blocked: map[int64]bool{}, updatesOK: true}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	fb.URL = srv.URL
	return fb
}

// AddMessage queues an inbound message from chatID as the next update.
func (fb *FakeBot) AddMessage(updateID int, chatID int64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.updates = append(fb.updates, map[string]interface{}{
		"update_id": updateID,
		"message": map[string]interface{}{
			"message_id": updateID,
			"date":       0,
			"text":       "/start",
			"chat":       map[string]interface{}{"id": chatID, "type": "private"},
		},
	})
}

// Block makes sendMessage to chatID fail with 403.
func (fb *FakeBot) Block(chatID int64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.blocked[chatID] = true
}

// FailUpdates makes getUpdates answer ok=false.
func (fb *FakeBot) FailUpdates() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.updatesOK = false
}

// Sent returns the delivered and rejected sendMessage calls in arrival order.
func (fb *FakeBot) Sent() []SentMessage {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]SentMessage(nil), fb.sent...)
}

// Offsets returns the offset parameter of every getUpdates call.
func (fb *FakeBot) Offsets() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.offsets...)
}

// Calls counts every request served.
func (fb *FakeBot) Calls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls
}

func (fb *FakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls++
	w.Header().Set("Content-Type", "application/json")

	prefix := "/bot" + fb.Token + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		return
	}
	_ = r.ParseForm()

	switch strings.TrimPrefix(r.URL.Path, prefix) {
	case "getMe":
		writeOK(w, map[string]interface{}{"id": 1, "is_bot": true, "first_name": "weather", "username": "weather_bot"})
	case "getUpdates":
		fb.offsets = append(fb.offsets, r.Form.Get("offset"))
		if !fb.updatesOK {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":409,"description":"Conflict: terminated by other getUpdates request"}`))
			return
		}
		// Like the Bot API, an offset confirms every update below it; the rest are served again.
		offset, _ := strconv.Atoi(r.Form.Get("offset"))
		pending := []map[string]interface{}{}
		for _, u := range fb.updates {
			if u["update_id"].(int) >= offset {
				pending = append(pending, u)
			}
		}
		fb.updates = pending
		writeOK(w, pending)
	case "sendMessage":
		var msg struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&msg)
		fb.sent = append(fb.sent, SentMessage{ChatID: msg.ChatID, Text: msg.Text})
		if fb.blocked[msg.ChatID] {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
			return
		}
		writeOK(w, map[string]interface{}{"message_id": len(fb.sent), "date": 0, "chat": map[string]interface{}{"id": msg.ChatID, "type": "private"}})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func writeOK(w http.ResponseWriter, result interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}
