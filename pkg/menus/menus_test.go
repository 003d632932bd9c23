package menus

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type staticMenu struct {
	keyboard tgbotapi.ReplyKeyboardMarkup
}

func (s staticMenu) Menu() tgbotapi.ReplyKeyboardMarkup {
	return s.keyboard
}

func TestApplicationMenu(t *testing.T) {
	keyboard := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Rounds")))
	am := NewApplicationMenu("Settings", "menu", staticMenu{keyboard: keyboard})

	if am.ButtonBackTo() != "Back to menu" {
		t.Errorf("Unexpected back button: %q", am.ButtonBackTo())
	}
	if got := am.PrevMenu(); len(got.Keyboard) != 1 || got.Keyboard[0][0].Text != "Rounds" {
		t.Errorf("Unexpected previous menu: %+v", got)
	}
}
