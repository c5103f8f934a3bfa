package conversation

import "context"

// Button is an inline button. Token comes back in a ButtonEvent.
type Button struct {
	Text  string
	Token string
}

// Keyboard is a grid of inline buttons attached to a message.
type Keyboard struct {
	Rows [][]Button
}

// SingleButton returns a keyboard holding one button.
func SingleButton(text, token string) *Keyboard {
	return &Keyboard{Rows: [][]Button{{{Text: text, Token: token}}}}
}

// Messenger delivers outbound messages. Implementations must be safe for
// concurrent use.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
}
