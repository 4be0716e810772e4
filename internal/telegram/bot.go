// Package telegram exposes the trip desk as a long-polling Telegram bot.
// Every chat is its own conversation session.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/orchestrator"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

const maxMessageLen = 4096

const greeting = "Hi! I can plan trips, check the weather at your destination and work out a travel budget. What are you planning?"

type Bot struct {
	bot      *telego.Bot
	handler  *th.BotHandler
	sessions *orchestrator.Sessions
	cfg      config.TelegramConfig
	cancel   context.CancelFunc
}

func NewBot(cfg config.TelegramConfig, sessions *orchestrator.Sessions) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Bot{
		bot:      bot,
		sessions: sessions,
		cfg:      cfg,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("create handler: %w", err)
	}
	b.handler = handler

	handler.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.handleMessage(ctx, message)
		return nil
	})

	go handler.Start()

	slog.Info("telegram bot started")
	<-ctx.Done()
	_ = handler.Stop()
	return nil
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.handler != nil {
		_ = b.handler.Stop()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg telego.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	// Send thinking indicator
	_ = b.sendChatAction(ctx, chatID, "typing")

	reply, ok := b.reply(ctx, chatID, msg.From.ID, text)
	if !ok {
		return
	}
	if err := b.SendMessage(ctx, chatID, reply); err != nil {
		slog.Error("failed to send telegram message", "chat", chatID, "error", err)
	}
}

func (b *Bot) allowed(userID int64) bool {
	return len(b.cfg.AllowFrom) == 0 || slices.Contains(b.cfg.AllowFrom, userID)
}

// reply computes the answer to one incoming message. ok is false when
// nothing should be sent back.
func (b *Bot) reply(ctx context.Context, chatID, userID int64, text string) (string, bool) {
	if !b.allowed(userID) {
		slog.Warn("unauthorized telegram user", "user_id", userID, "chat_id", chatID)
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	sessionID := "tg-" + strconv.FormatInt(chatID, 10)

	switch strings.Fields(text)[0] {
	case "/start", "/help":
		return greeting, true
	case "/reset":
		b.sessions.Remove(sessionID)
		return "Conversation reset.", true
	}

	orch, err := b.sessions.Get(sessionID, "telegram")
	if err != nil {
		slog.Error("session lookup failed", "session", sessionID, "error", err)
		return "Sorry, I encountered an error processing your message.", true
	}

	resp, err := orch.ProcessRequest(ctx, text)
	if err != nil {
		slog.Error("handle message failed", "session", sessionID, "error", err)
		return "Sorry, I encountered an error processing your message.", true
	}

	if resp.Status == agent.StatusInputRequired {
		return "🤔 " + resp.Message, true
	}
	return resp.Message, true
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range chunkMessage(text, maxMessageLen) {
		msg := tu.Message(tu.ID(chatID), chunk)
		if _, err := b.bot.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}
