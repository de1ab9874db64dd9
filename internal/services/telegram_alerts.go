package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAlerter mirrors case milestones into an internal ops channel.
// A nil alerter (no token configured) is a no-op.
type TelegramAlerter struct {
	bot       *tgbotapi.BotAPI
	opsChatID int64
	dryRun    bool
}

func NewTelegramAlerter(token string, opsChatID int64, dryRun bool) (*TelegramAlerter, error) {
	if token == "" || opsChatID == 0 {
		return nil, nil
	}
	if dryRun {
		return &TelegramAlerter{opsChatID: opsChatID, dryRun: true}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramAlerter{bot: bot, opsChatID: opsChatID}, nil
}

func (t *TelegramAlerter) CaseAlert(leadID int, event, message string) error {
	if t == nil {
		return nil
	}
	text := fmt.Sprintf("[case %d] %s: %s", leadID, event, message)
	if t.dryRun || t.bot == nil {
		log.Printf("[tg][dry-run] %s", text)
		return nil
	}
	msg := tgbotapi.NewMessage(t.opsChatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}
