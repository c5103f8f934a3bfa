package models

// User represents a chat user taking part in a settlement cycle.
// A user row lives exactly as long as the team it belongs to.
type User struct {
	// ID is the stable chat identity of the user (Telegram user ID).
	ID int64

	// ChatID is where outbound messages for this user are delivered.
	ChatID int64

	// Name is the display name shown to teammates.
	Name string

	// TeamID is the join token of the user's team.
	TeamID string

	// Phone is the contact the user wants to be paid to.
	// Nil until the user submits contact info in the Payment stage.
	Phone *string

	// PaymentLink is an optional bank transfer link.
	PaymentLink *string

	// Stage is the user's current conversation stage.
	Stage Stage

	// CreatedAt is the Unix timestamp when the user joined.
	CreatedAt int64
}

// HasContact reports whether the user submitted contact info.
func (u *User) HasContact() bool {
	return u.Phone != nil && *u.Phone != ""
}
