package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotWrapper adapts *tgbotapi.BotAPI to the TelegramSender surface; the
// library exposes Self as a field, not a method.
type BotWrapper struct {
	*tgbotapi.BotAPI
}

func NewBotWrapper(api *tgbotapi.BotAPI) *BotWrapper {
	return &BotWrapper{BotAPI: api}
}

func (w *BotWrapper) GetSelf() tgbotapi.User {
	return w.Self
}
