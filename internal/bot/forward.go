package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promo_engine/internal/model"
)

// Forward delivers ev to the configured forward chat. Telegram messages are
// forwarded as-is so the original attribution is kept; events from other
// sources are sent as text. It returns when the send completes or ctx is done.
func (b *Bot) Forward(ctx context.Context, ev model.Event) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("forward rate limit: %w", err)
	}

	var c tgbotapi.Chattable
	if ev.ChatID != 0 && ev.MessageID != 0 {
		c = tgbotapi.NewForward(b.cfg.ForwardChatID, ev.ChatID, int(ev.MessageID))
	} else {
		msg := tgbotapi.NewMessage(b.cfg.ForwardChatID, FormatRelay(ev))
		msg.DisableWebPagePreview = true
		c = msg
	}

	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(c)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("forward to %d: %w", b.cfg.ForwardChatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("forward to %d: %w", b.cfg.ForwardChatID, ctx.Err())
	}
}

// eventFromMessage converts a Telegram message into an engine event. The source
// is the originating channel's username, or its numeric id when it has none.
func eventFromMessage(msg *tgbotapi.Message) model.Event {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	src := msg.Chat
	if msg.ForwardFromChat != nil {
		src = msg.ForwardFromChat
	}
	source := src.UserName
	if source == "" {
		source = strconv.FormatInt(src.ID, 10)
	}

	return model.Event{
		SourceID:  source,
		Text:      text,
		MessageID: int64(msg.MessageID),
		ChatID:    msg.Chat.ID,
	}
}
