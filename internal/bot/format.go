package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promo_engine/internal/model"
)

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

// FormatRelay formats a non-Telegram event as a message for the forward chat.
func FormatRelay(ev model.Event) string {
	return fmt.Sprintf("[%s]\n\n%s", ev.SourceID, ev.Text)
}

// FormatKeywords lists the monitored keywords.
func FormatKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return "No keywords configured. Nothing will be forwarded.\nUse /addkeyword <word> to add one."
	}
	var b strings.Builder
	b.WriteString("Keywords:\n")
	for _, kw := range keywords {
		fmt.Fprintf(&b, "  • %s\n", kw)
	}
	return b.String()
}

// FormatChannels lists the monitored channels.
func FormatChannels(channels []string) string {
	if len(channels) == 0 {
		return "No channels monitored. Every message is ignored.\nUse /addchannel <name> to add one."
	}
	var b strings.Builder
	b.WriteString("Monitored channels:\n")
	for _, ch := range channels {
		fmt.Fprintf(&b, "  • @%s\n", ch)
	}
	return b.String()
}

// FormatPromotions formats stored promotions, newest first.
func FormatPromotions(promos []model.Promotion, query string) string {
	if len(promos) == 0 {
		if query != "" {
			return fmt.Sprintf("No promotions matching %q.", query)
		}
		return "No promotions captured yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d promotion(s):\n", len(promos))
	for _, p := range promos {
		fmt.Fprintf(&b, "\n%s\n", p.Title)
		if p.Price != nil {
			fmt.Fprintf(&b, "   %s\n", FormatPrice(*p.Price))
		}
		fmt.Fprintf(&b, "   @%s · %s\n", p.Source, p.CapturedAt.UTC().Format("2006-01-02 15:04 UTC"))
		if p.Link != model.LinkNotFound {
			fmt.Fprintf(&b, "   %s\n", p.Link)
		}
	}
	return b.String()
}

// FormatPrice renders a price in Brazilian notation, e.g. R$ 1.299,90.
func FormatPrice(v float64) string {
	cents := int64(v*100 + 0.5)
	whole, frac := cents/100, cents%100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("R$ %s,%02d", b.String(), frac)
}

// removeKeyboard builds one "remove" button per entry. Entries too long to
// fit in callback data are left without a button.
func removeKeyboard(action string, items []string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		data := action + ":" + item
		if len(data) > maxCallbackData {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖ "+item, data),
		))
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
