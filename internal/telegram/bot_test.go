package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"statguard/internal/config"
	"statguard/internal/engine"
	"statguard/internal/model"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type stubProcessor struct {
	res engine.Result
	err error
}

func (p stubProcessor) Process(context.Context, string) (engine.Result, error) {
	return p.res, p.err
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

func alertResult() engine.Result {
	return engine.Result{
		Query:  model.Query{Player: "lebron james", Mode: model.ModeFullGame},
		Rows:   []model.GameRow{{Points: 30}},
		Alerts: []model.Alert{{Stat: "PTS"}},
		Lines:  []string{"25 PTS: 7/10"},
		Image:  []byte("png"),
	}
}

func TestHandleMessageSendsAlertsAndPhoto(t *testing.T) {
	s := &recordingSender{}
	b := NewBot(s, stubProcessor{res: alertResult()}, 0, nil)
	b.HandleMessage(context.Background(), textMessage(42, "lebron james"))

	if len(s.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(s.sent))
	}
	if m := s.sent[0].(tgbotapi.MessageConfig); m.Text != replyFetching || m.ChatID != 42 {
		t.Fatalf("first reply: %+v", m)
	}
	alert := s.sent[1].(tgbotapi.MessageConfig)
	if alert.ParseMode != tgbotapi.ModeMarkdown || alert.Text != "🔥 **LEBRON JAMES HAS CLEARED IN THE FULL GAME:**\n**25 PTS: 7/10**" {
		t.Fatalf("alert message: %+v", alert)
	}
	photo, ok := s.sent[2].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected photo, got %T", s.sent[2])
	}
	if f, ok := photo.File.(tgbotapi.FileBytes); !ok || f.Name != "stats.png" || string(f.Bytes) != "png" {
		t.Fatalf("photo file: %+v", photo.File)
	}
}

func TestHandleMessageNoAlertsOnlyPhoto(t *testing.T) {
	res := alertResult()
	res.Alerts, res.Lines = nil, nil
	s := &recordingSender{}
	NewBot(s, stubProcessor{res: res}, 0, nil).HandleMessage(context.Background(), textMessage(1, "someone"))
	if len(s.sent) != 2 {
		t.Fatalf("expected fetching + photo, got %d sends", len(s.sent))
	}
	if _, ok := s.sent[1].(tgbotapi.PhotoConfig); !ok {
		t.Fatalf("expected photo, got %T", s.sent[1])
	}
}

func TestHandleMessageNoData(t *testing.T) {
	for name, p := range map[string]stubProcessor{
		"fetch failed": {err: fmt.Errorf("%w: status 500", model.ErrFetchFailed)},
		"no table":     {err: model.ErrNoData},
		"empty window": {res: engine.Result{}},
	} {
		s := &recordingSender{}
		NewBot(s, p, 0, nil).HandleMessage(context.Background(), textMessage(1, "someone"))
		texts := s.texts()
		if len(s.sent) != 2 || texts[1] != replyNoData {
			t.Fatalf("%s: replies %v", name, texts)
		}
	}
}

func TestHandleMessageIgnoresUnknownCommands(t *testing.T) {
	s := &recordingSender{}
	b := NewBot(s, stubProcessor{res: alertResult()}, 0, nil)
	cmd := textMessage(1, "/stats")
	cmd.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.HandleMessage(context.Background(), cmd)
	if len(s.sent) != 0 {
		t.Fatalf("commands should not query: %d sends", len(s.sent))
	}
	start := textMessage(1, "/start")
	start.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.HandleMessage(context.Background(), start)
	if texts := s.texts(); len(texts) != 1 || texts[0] != replyUsage {
		t.Fatalf("start reply: %v", texts)
	}
}

func TestHandleMessageCooldown(t *testing.T) {
	s := &recordingSender{}
	b := NewBot(s, stubProcessor{res: alertResult()}, time.Hour, nil)
	b.HandleMessage(context.Background(), textMessage(7, "lebron james"))
	b.HandleMessage(context.Background(), textMessage(7, "lebron james"))
	texts := s.texts()
	if texts[len(texts)-1] != replyBusy {
		t.Fatalf("second query should be throttled: %v", texts)
	}
	b.HandleMessage(context.Background(), textMessage(8, "lebron james"))
	if last := s.texts(); last[len(last)-1] == replyBusy {
		t.Fatalf("other chats are not throttled")
	}
}

func TestRunHandlesUpdates(t *testing.T) {
	s := &recordingSender{}
	b := NewBot(s, stubProcessor{res: alertResult()}, 0, nil)
	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{Message: textMessage(1, "a")}
	updates <- tgbotapi.Update{}
	close(updates)
	b.Run(context.Background(), updates)
	if len(s.texts()) != 2 {
		t.Fatalf("expected fetching + alert replies, got %v", s.texts())
	}
}

func TestCooldownExpires(t *testing.T) {
	c := NewCooldown()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	if !c.AllowKey("k", time.Minute) {
		t.Fatalf("first call allowed")
	}
	if c.AllowKey("k", time.Minute) {
		t.Fatalf("second call inside cooldown")
	}
	now = now.Add(time.Minute)
	if !c.AllowKey("k", time.Minute) {
		t.Fatalf("allowed after cooldown")
	}
}

func TestAccessList(t *testing.T) {
	var open *AccessList
	if !open.Allows(5) {
		t.Fatalf("nil list allows everyone")
	}
	a := NewAccessList(config.TelegramConfig{AllowedChats: []int64{1, 2}, BlockedChats: []int64{2}})
	if !a.Allows(1) || a.Allows(2) || a.Allows(3) {
		t.Fatalf("allow/block semantics broken")
	}
	b := NewAccessList(config.TelegramConfig{BlockedChats: []int64{9}})
	if b.Allows(9) || !b.Allows(10) {
		t.Fatalf("block-only list")
	}
}

func TestHandleMessageSkipsBlockedChat(t *testing.T) {
	s := &recordingSender{}
	bot := NewBot(s, stubProcessor{res: alertResult()}, 0, nil)
	bot.SetAccess(NewAccessList(config.TelegramConfig{BlockedChats: []int64{13}}))
	bot.HandleMessage(context.Background(), textMessage(13, "lebron james"))
	if len(s.sent) != 0 {
		t.Fatalf("blocked chat got %d replies", len(s.sent))
	}
}
