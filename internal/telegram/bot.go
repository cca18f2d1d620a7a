package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"statguard/internal/config"
	"statguard/internal/engine"
	"statguard/internal/model"
)

const (
	replyFetching = "Fetching stats..."
	replyNoData   = "No data found"
	replyBusy     = "Slow down, one query at a time."
	replyUsage    = "Send a player name, e.g. `lebron james`, `lebron james 1q` or `lebron james vs boston celtics`."
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Processor interface {
	Process(ctx context.Context, text string) (engine.Result, error)
}

type Bot struct {
	sender   Sender
	proc     Processor
	cooldown *Cooldown
	access   *AccessList
	wait     time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewBot(sender Sender, proc Processor, wait time.Duration, logger *slog.Logger) *Bot {
	return &Bot{
		sender:   sender,
		proc:     proc,
		cooldown: NewCooldown(),
		wait:     wait,
		logger:   logger,
	}
}

// Start connects to the bot API and long-polls until ctx is done.
func Start(ctx context.Context, cfg *config.Manager, proc Processor, logger *slog.Logger) (*Bot, error) {
	current := cfg.Get().Telegram
	if !current.Enabled {
		if logger != nil {
			logger.Info("telegram disabled")
		}
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(current.Token)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("telegram enabled", "bot", api.Self.UserName)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = current.PollTimeout
	updates := api.GetUpdatesChan(u)
	bot := NewBot(api, proc, current.Cooldown, logger)
	bot.SetAccess(NewAccessList(current))
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	go bot.Run(ctx, updates)
	return bot, nil
}

// Run dispatches each update to its own goroutine until updates closes or
// ctx is done, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleMessage(ctx, msg)
			}()
		}
	}
}

func (b *Bot) SetAccess(a *AccessList) {
	b.access = a
}

func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	if !b.access.Allows(chatID) {
		if b.logger != nil {
			b.logger.Debug("chat not allowed", "chat_id", chatID)
		}
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(chatID, replyUsage, tgbotapi.ModeMarkdown)
		}
		return
	}
	if !b.cooldown.AllowChat(chatID, b.wait) {
		b.reply(chatID, replyBusy, "")
		return
	}
	b.reply(chatID, replyFetching, "")

	res, err := b.proc.Process(ctx, msg.Text)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyQuery):
			b.reply(chatID, replyUsage, tgbotapi.ModeMarkdown)
		default:
			if b.logger != nil && !engine.IsAbort(err) {
				b.logger.Error("query failed", "chat_id", chatID, "err", err)
			}
			b.reply(chatID, replyNoData, "")
		}
		return
	}
	if res.Empty() {
		b.reply(chatID, replyNoData, "")
		return
	}
	if text := res.Message(); text != "" {
		b.reply(chatID, text, tgbotapi.ModeMarkdown)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "stats.png", Bytes: res.Image})
	if _, err := b.sender.Send(photo); err != nil && b.logger != nil {
		b.logger.Warn("telegram photo failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) reply(chatID int64, text, parseMode string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = parseMode
	if _, err := b.sender.Send(m); err != nil && b.logger != nil {
		b.logger.Warn("telegram send failed", "chat_id", chatID, "err", err)
	}
}
