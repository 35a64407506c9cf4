package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdKeywords  = "keywords"
	cmdRmKeyword = "rmkeyword"
	cmdChannels  = "channels"
	cmdRmChannel = "rmchannel"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if !b.cfg.IsUserAllowed(cb.From.ID) {
		b.reply(chatID, "Access denied.")
		return
	}

	action, value, ok := strings.Cut(cb.Data, ":")
	if !ok || value == "" {
		return
	}

	b.log.Info("callback",
		"action", action,
		"value", value,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdRmKeyword:
		b.handleRmKeyword(ctx, chatID, value)
	case cmdRmChannel:
		b.handleRmChannel(ctx, chatID, value)
	}
}
