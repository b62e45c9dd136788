package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/ledger-bot/internal/conversation"
	"github.com/zombor/ledger-bot/internal/ledger"
)

// MessageFromUpdate converts an update into an engine message. Updates without
// a sender, or with neither text nor a usable attachment, are skipped.
func MessageFromUpdate(update tgbotapi.Update) (conversation.Message, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return conversation.Message{}, false
	}

	msg := conversation.Message{
		ChatID: m.Chat.ID,
		User: ledger.User{
			TelegramID: m.From.ID,
			Username:   m.From.UserName,
			FirstName:  m.From.FirstName,
			LastName:   m.From.LastName,
		},
		Text: m.Text,
	}

	switch {
	case len(m.Photo) > 0:
		msg.Attachment = &conversation.Attachment{FileID: largestPhoto(m.Photo).FileID, ContentType: "image/jpeg"}
	case m.Document != nil && acceptedDocument(m.Document.MimeType):
		msg.Attachment = &conversation.Attachment{FileID: m.Document.FileID, ContentType: m.Document.MimeType}
	}

	if msg.Attachment == nil && strings.TrimSpace(msg.Text) == "" {
		return conversation.Message{}, false
	}
	return msg, true
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

func acceptedDocument(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}
