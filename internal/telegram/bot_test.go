package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/settlebot/internal/conversation"
)

// fakeAPI feeds updates from a channel and records outbound calls.
type fakeAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	fileURL  string
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 100)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no such file")
	}
	return f.fileURL, nil
}

// recordingHandler collects events per sender.
type recordingHandler struct {
	mu     sync.Mutex
	events map[int64][]conversation.Event
	count  int
	done   chan struct{}
	want   int
}

func newRecordingHandler(want int) *recordingHandler {
	return &recordingHandler{events: make(map[int64][]conversation.Event), done: make(chan struct{}), want: want}
}

func (r *recordingHandler) Handle(_ context.Context, ev conversation.Event) (conversation.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ev.From().SenderID
	r.events[id] = append(r.events[id], ev)
	r.count++
	if r.count == r.want {
		close(r.done)
	}
	return conversation.Dispatch{}, nil
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func TestToEvent(t *testing.T) {
	tests := []struct {
		name         string
		update       tgbotapi.Update
		wantOK       bool
		wantPhoto    string
		validateFunc func(t *testing.T, ev conversation.Event)
	}{
		{
			name:   "text",
			update: textUpdate(7, "Хлеб 1 50"),
			wantOK: true,
			validateFunc: func(t *testing.T, ev conversation.Event) {
				te, ok := ev.(conversation.TextEvent)
				if !ok || te.Text != "Хлеб 1 50" || te.SenderID != 7 || te.ChatID != 7 || te.SenderName != "Ann" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name: "callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				From:    &tgbotapi.User{ID: 7, UserName: "ann"},
				Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: 70}},
				Data:    "claim:p1",
			}},
			wantOK: true,
			validateFunc: func(t *testing.T, ev conversation.Event) {
				be, ok := ev.(conversation.ButtonEvent)
				if !ok || be.Token != "claim:p1" || be.MessageID != 55 || be.ChatID != 70 || be.SenderName != "@ann" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name: "photo picks the largest size",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 7},
				Chat: &tgbotapi.Chat{ID: 7},
				Photo: []tgbotapi.PhotoSize{
					{FileID: "small", Width: 90, Height: 160},
					{FileID: "large", Width: 720, Height: 1280},
					{FileID: "medium", Width: 320, Height: 568},
				},
			}},
			wantOK:    true,
			wantPhoto: "large",
			validateFunc: func(t *testing.T, ev conversation.Event) {
				if pe, ok := ev.(conversation.PhotoEvent); !ok || pe.SenderName != "user7" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name:   "sticker is dropped",
			update: tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7}}},
		},
		{
			name:   "channel post is dropped",
			update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "hi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, photo, ok := toEvent(tt.update)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if photo != tt.wantPhoto {
				t.Errorf("photo = %q, want %q", photo, tt.wantPhoto)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, ev)
			}
		})
	}
}

func TestRunKeepsPerUserOrder(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api, Options{Workers: 4})

	users := []int64{11, 12, 13, 14, 15}
	const perUser = 20
	for i := 0; i < perUser; i++ {
		for _, u := range users {
			api.updates <- textUpdate(u, string(rune('a'+i)))
		}
	}

	h := newRecordingHandler(len(users) * perUser)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- bot.Run(ctx, h) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("events were not handled in time")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, u := range users {
		evs := h.events[u]
		if len(evs) != perUser {
			t.Fatalf("user %d: %d events, want %d", u, len(evs), perUser)
		}
		for i, ev := range evs {
			if got := ev.(conversation.TextEvent).Text; got != string(rune('a'+i)) {
				t.Errorf("user %d event %d = %q, out of order", u, i, got)
			}
		}
	}
	if !api.stopped {
		t.Error("polling was not stopped")
	}
}

func TestRunAnswersCallbacksAndDownloadsPhotos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	api := newFakeAPI()
	api.fileURL = srv.URL
	bot := newBot(api, Options{Workers: 1})

	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 3},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 3}},
		Data:    "settle",
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 3},
		Chat:  &tgbotapi.Chat{ID: 3},
		Photo: []tgbotapi.PhotoSize{{FileID: "f", Width: 1, Height: 1}},
	}}
	close(api.updates)

	h := newRecordingHandler(2)
	if err := bot.Run(context.Background(), h); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(api.requests) != 1 {
		t.Fatalf("answered %d callbacks, want 1", len(api.requests))
	}
	if cb, ok := api.requests[0].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb-1" {
		t.Errorf("callback answer = %+v", api.requests[0])
	}

	evs := h.events[3]
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if pe, ok := evs[1].(conversation.PhotoEvent); !ok || string(pe.Image) != "jpeg" {
		t.Errorf("photo event = %+v", evs[1])
	}
}

// blockingHandler holds every event until release is closed.
type blockingHandler struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *blockingHandler) Handle(context.Context, conversation.Event) (conversation.Dispatch, error) {
	h.once.Do(func() { close(h.started) })
	<-h.release
	return conversation.Dispatch{}, nil
}

func TestRunStopsWithFullQueue(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api, Options{Workers: 1})
	for i := 0; i < queueSize+10; i++ {
		api.updates <- textUpdate(9, "x")
	}

	h := &blockingHandler{started: make(chan struct{}), release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- bot.Run(ctx, h) }()

	select {
	case <-h.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for {
		api.mu.Lock()
		stopped := api.stopped
		api.mu.Unlock()
		if stopped {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("polling was not stopped while the worker was busy")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(h.release)
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunPhotoDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	api := newFakeAPI()
	api.fileURL = srv.URL
	bot := newBot(api, Options{Workers: 1})

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 4},
		Chat:  &tgbotapi.Chat{ID: 4},
		Photo: []tgbotapi.PhotoSize{{FileID: "f", Width: 1, Height: 1}},
	}}
	close(api.updates)

	h := newRecordingHandler(1)
	if err := bot.Run(context.Background(), h); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	evs := h.events[4]
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if pe, ok := evs[0].(conversation.PhotoEvent); !ok || len(pe.Image) != 0 {
		t.Errorf("photo event = %+v, want one without an image", evs[0])
	}
}

func TestMessenger(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api, Options{})
	ctx := context.Background()

	kb := &conversation.Keyboard{Rows: [][]conversation.Button{
		{{Text: "Да", Token: "settle:yes"}, {Text: "Нет", Token: "settle:no"}},
	}}
	id, err := bot.SendText(ctx, 9, "Точно?", kb)
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if id != 1 {
		t.Errorf("message id = %d, want 1", id)
	}
	msg := api.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("markup = %+v", msg.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][1].CallbackData; data == nil || *data != "settle:no" {
		t.Errorf("second button data = %v", data)
	}

	if err := bot.EditMessage(ctx, 9, 1, "Готово", conversation.SingleButton("☑", "claim:p")); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}
	edit := api.sent[1].(tgbotapi.EditMessageTextConfig)
	if edit.MessageID != 1 || edit.Text != "Готово" || edit.ReplyMarkup == nil {
		t.Errorf("edit = %+v", edit)
	}

	api.sendErr = errors.New("Bad Request: message is not modified")
	if err := bot.EditMessage(ctx, 9, 1, "Готово", nil); err != nil {
		t.Errorf("unchanged edit should not fail: %v", err)
	}
	api.sendErr = errors.New("Forbidden: bot was blocked by the user")
	if _, err := bot.SendText(ctx, 9, "hi", nil); err == nil {
		t.Error("expected a send error")
	}
}

func TestShard(t *testing.T) {
	for _, id := range []int64{0, 1, 7, 123456789, -5} {
		s := shard(id, 8)
		if s < 0 || s >= 8 {
			t.Errorf("shard(%d) = %d out of range", id, s)
		}
		if shard(id, 8) != s {
			t.Errorf("shard(%d) is not stable", id)
		}
	}
}
