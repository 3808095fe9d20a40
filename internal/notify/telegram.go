package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// StaffNotifier pushes short operational alerts (waitlist promotions) to the
// gym staff's Telegram chat. Optional; a nil notifier is a no-op.
type StaffNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewStaffNotifier connects the staff alert bot.
func NewStaffNotifier(botToken string, chatID int64, logger *zerolog.Logger) (*StaffNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create staff bot: %w", err)
	}
	return &StaffNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// Alert sends one message to the staff chat, best effort.
func (n *StaffNotifier) Alert(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("send staff alert")
	}
}
