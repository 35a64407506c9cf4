package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"promo_engine/internal/config"
	"promo_engine/internal/model"
	"promo_engine/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot listens for channel posts, forwards matches to the operator's chat and
// serves the admin commands that edit the filter configuration.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	cfg     *config.Config
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("telegram authorized", "username", api.Self.UserName)
	return newBot(api, store, cfg, log), nil
}

func newBot(api telegramAPI, store storage.Storage, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		store:   store,
		cfg:     cfg,
		limiter: newLimiter(cfg.ForwardRate),
		log:     log,
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
}

// Run starts the long-polling loop, publishing message events to events and
// blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, events chan<- model.Event) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{
		tgbotapi.UpdateTypeMessage,
		tgbotapi.UpdateTypeChannelPost,
		tgbotapi.UpdateTypeCallbackQuery,
	}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update, events)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update, events chan<- model.Event) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.ChannelPost != nil:
		b.publish(ctx, events, update.ChannelPost)
	case update.Message != nil:
		msg := update.Message
		if !msg.Chat.IsPrivate() {
			if !msg.IsCommand() {
				b.publish(ctx, events, msg)
			}
			return
		}
		if !msg.IsCommand() && msg.ForwardFromChat == nil {
			return
		}
		if msg.From == nil || !b.cfg.IsUserAllowed(msg.From.ID) {
			b.reply(msg.Chat.ID, "Access denied.")
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		// Posts relayed by hand from channels the bot cannot join.
		b.publish(ctx, events, msg)
	}
}

func (b *Bot) publish(ctx context.Context, events chan<- model.Event, msg *tgbotapi.Message) {
	ev := eventFromMessage(msg)
	b.log.Debug("inbound message", "source", ev.SourceID, "chat_id", ev.ChatID, "message_id", ev.MessageID)
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdKeywords:
		b.handleKeywords(ctx, chatID)
	case "addkeyword":
		b.handleAddKeyword(ctx, chatID, args)
	case cmdRmKeyword:
		b.handleRmKeyword(ctx, chatID, args)
	case cmdChannels:
		b.handleChannels(ctx, chatID)
	case "addchannel":
		b.handleAddChannel(ctx, chatID, args)
	case cmdRmChannel:
		b.handleRmChannel(ctx, chatID, args)
	case "recent":
		b.handleRecent(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
