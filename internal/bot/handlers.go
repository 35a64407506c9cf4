package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promo_engine/internal/filter"
	"promo_engine/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Promo Engine!

Messages from the monitored channels are stored, and the ones containing a
keyword are forwarded to the configured chat.

Quick start:
1. /addchannel <name> — monitor a channel
2. /addkeyword <word> — forward messages containing a word
3. /recent — see what was captured

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Keywords:
/keywords — show keywords
/addkeyword <word> — add a keyword
/rmkeyword <word> — remove a keyword

Channels:
/channels — show monitored channels
/addchannel <name> — monitor a channel (with or without @)
/rmchannel <name> — stop monitoring a channel

Promotions:
/recent [n] [text] — last n captured promotions (default 10, max 50), optionally filtered by title`)
}

// updateFilters applies fn to the current configuration and saves it when fn
// reports a change.
func (b *Bot) updateFilters(ctx context.Context, fn func(*model.FilterConfig) bool) (model.FilterConfig, bool, error) {
	cfg, err := b.store.CurrentFilters(ctx)
	if err != nil {
		return model.FilterConfig{}, false, err
	}
	if !fn(&cfg) {
		return cfg, false, nil
	}
	if err := b.store.SaveFilterConfig(ctx, cfg); err != nil {
		return model.FilterConfig{}, false, err
	}
	return cfg, true, nil
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64) {
	cfg, err := b.store.CurrentFilters(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.replyWithKeyboard(chatID, FormatKeywords(cfg.Keywords), removeKeyboard(cmdRmKeyword, cfg.Keywords))
}

func (b *Bot) handleAddKeyword(ctx context.Context, chatID int64, args string) {
	kw, err := ParseValueArg(args, "keyword")
	if err != nil {
		b.reply(chatID, "Usage: /addkeyword <word>")
		return
	}

	_, changed, err := b.updateFilters(ctx, func(cfg *model.FilterConfig) bool {
		var ok bool
		cfg.Keywords, ok = filter.Add(cfg.Keywords, kw, filter.NormalizeKeyword)
		return ok
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !changed {
		b.reply(chatID, fmt.Sprintf("Keyword %q is already configured.", filter.NormalizeKeyword(kw)))
		return
	}
	b.log.Info("keyword added", "keyword", kw, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Keyword %q added.", filter.NormalizeKeyword(kw)))
}

func (b *Bot) handleRmKeyword(ctx context.Context, chatID int64, args string) {
	kw, err := ParseValueArg(args, "keyword")
	if err != nil {
		b.reply(chatID, "Usage: /rmkeyword <word>")
		return
	}

	_, changed, err := b.updateFilters(ctx, func(cfg *model.FilterConfig) bool {
		var ok bool
		cfg.Keywords, ok = filter.Remove(cfg.Keywords, kw, filter.NormalizeKeyword)
		return ok
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !changed {
		b.reply(chatID, fmt.Sprintf("Keyword %q not found.", kw))
		return
	}
	b.log.Info("keyword removed", "keyword", kw, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Keyword %q removed.", kw))
}

func (b *Bot) handleChannels(ctx context.Context, chatID int64) {
	cfg, err := b.store.CurrentFilters(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.replyWithKeyboard(chatID, FormatChannels(cfg.Channels), removeKeyboard(cmdRmChannel, cfg.Channels))
}

func (b *Bot) handleAddChannel(ctx context.Context, chatID int64, args string) {
	name, err := ParseValueArg(args, "channel")
	if err != nil {
		b.reply(chatID, "Usage: /addchannel <name>")
		return
	}
	name = filter.NormalizeSource(name)

	_, changed, err := b.updateFilters(ctx, func(cfg *model.FilterConfig) bool {
		var ok bool
		cfg.Channels, ok = filter.Add(cfg.Channels, name, filter.NormalizeSource)
		return ok
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !changed {
		b.reply(chatID, fmt.Sprintf("Channel @%s is already monitored.", name))
		return
	}
	b.log.Info("channel added", "channel", name, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Now monitoring @%s.", name))
}

func (b *Bot) handleRmChannel(ctx context.Context, chatID int64, args string) {
	name, err := ParseValueArg(args, "channel")
	if err != nil {
		b.reply(chatID, "Usage: /rmchannel <name>")
		return
	}
	name = filter.NormalizeSource(name)

	_, changed, err := b.updateFilters(ctx, func(cfg *model.FilterConfig) bool {
		var ok bool
		cfg.Channels, ok = filter.Remove(cfg.Channels, name, filter.NormalizeSource)
		return ok
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !changed {
		b.reply(chatID, fmt.Sprintf("Channel @%s is not monitored.", name))
		return
	}
	b.log.Info("channel removed", "channel", name, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Stopped monitoring @%s.", name))
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, args string) {
	parsed, err := ParseRecentArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	promos, err := b.store.ListRecent(ctx, parsed.Limit, parsed.Query)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatPromotions(promos, parsed.Query))
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}
