package conversation

import "strings"

// Sender identifies who produced an event and where to answer.
type Sender struct {
	SenderID   int64
	ChatID     int64
	SenderName string
}

// Event is an inbound chat event.
type Event interface {
	From() Sender
}

// TextEvent is a typed message or command.
type TextEvent struct {
	Sender
	Text string
}

// PhotoEvent is a photo, expected to be a receipt.
type PhotoEvent struct {
	Sender
	Image []byte
}

// ButtonEvent is a press on an inline button of message MessageID.
type ButtonEvent struct {
	Sender
	MessageID int
	Token     string
}

// From returns the sender.
func (e TextEvent) From() Sender { return e.Sender }

// From returns the sender.
func (e PhotoEvent) From() Sender { return e.Sender }

// From returns the sender.
func (e ButtonEvent) From() Sender { return e.Sender }

// Kind is the classified meaning of an event.
type Kind int

const (
	// KindStart is /start, optionally with a team token payload.
	KindStart Kind = iota
	// KindCreateTeam is /new or the create-team button.
	KindCreateTeam
	// KindText is any other text: a token, a product or a contact.
	KindText
	// KindPhoto is a receipt photo.
	KindPhoto
	// KindClaim is a press on a product's claim button.
	KindClaim
	// KindSettle is /settle or the settle button.
	KindSettle
	// KindConfirmYes confirms moving on to payment.
	KindConfirmYes
	// KindConfirmNo declines moving on to payment.
	KindConfirmNo
	// KindHelp is /help.
	KindHelp

	kindCount
)

var kindNames = [kindCount]string{
	KindStart:      "start",
	KindCreateTeam: "create_team",
	KindText:       "text",
	KindPhoto:      "photo",
	KindClaim:      "claim",
	KindSettle:     "settle",
	KindConfirmYes: "confirm_yes",
	KindConfirmNo:  "confirm_no",
	KindHelp:       "help",
}

// String returns the kind's name for logs and metric labels.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Commands.
const (
	CommandStart  = "/start"
	CommandNew    = "/new"
	CommandSettle = "/settle"
	CommandHelp   = "/help"
)

// Button tokens.
const (
	TokenCreateTeam  = "team:create"
	TokenSettle      = "settle"
	TokenSettleYes   = "settle:yes"
	TokenSettleNo    = "settle:no"
	tokenClaimPrefix = "claim:"
)

// ClaimToken is the button token that toggles a claim on productID.
func ClaimToken(productID string) string {
	return tokenClaimPrefix + productID
}

// Classify maps an event to its kind. It reports false for button tokens
// the bot never issued.
func Classify(ev Event) (Kind, bool) {
	switch e := ev.(type) {
	case TextEvent:
		return classifyText(e.Text), true
	case PhotoEvent:
		return KindPhoto, true
	case ButtonEvent:
		return classifyButton(e.Token)
	default:
		return 0, false
	}
}

func classifyText(text string) Kind {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return KindText
	}
	// Telegram appends @botname to commands in group chats.
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch strings.ToLower(cmd) {
	case CommandStart:
		return KindStart
	case CommandNew:
		return KindCreateTeam
	case CommandSettle:
		return KindSettle
	case CommandHelp:
		return KindHelp
	default:
		return KindText
	}
}

func classifyButton(token string) (Kind, bool) {
	switch token {
	case TokenCreateTeam:
		return KindCreateTeam, true
	case TokenSettle:
		return KindSettle, true
	case TokenSettleYes:
		return KindConfirmYes, true
	case TokenSettleNo:
		return KindConfirmNo, true
	}
	if id, ok := strings.CutPrefix(token, tokenClaimPrefix); ok && id != "" {
		return KindClaim, true
	}
	return 0, false
}

// startPayload returns the argument of "/start <payload>", used by
// Telegram deep links to carry a team token.
func startPayload(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
