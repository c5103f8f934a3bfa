package phrases

// Phrase keys used by the conversation.
const (
	Greeting           = "greeting"
	Help               = "help"
	TeamCreated        = "team_created"
	TeamJoined         = "team_joined"
	UnknownTeam        = "unknown_team"
	AlreadyInTeam      = "already_in_team"
	ProductFormat      = "product_format"
	ProductLine        = "product_line"
	ReceiptShop        = "receipt_shop"
	ReceiptFailed      = "receipt_failed"
	ReceiptUnavailable = "receipt_unavailable"
	ReceiptEmpty       = "receipt_empty"
	ReceiptPartial     = "receipt_partial"
	SettlePrompt       = "settle_prompt"
	SettleConfirm      = "settle_confirm"
	SettleCancelled    = "settle_cancelled"
	ContactRequest     = "contact_request"
	ContactFormat      = "contact_format"
	ContactSaved       = "contact_saved"
	WaitForOthers      = "wait_for_others"
	StatementHeader    = "statement_header"
	StatementDebt      = "statement_debt"
	StatementLink      = "statement_link"
	StatementNoDebts   = "statement_no_debts"
	StatementTotal     = "statement_total"
	StatementIncoming  = "statement_incoming"
	NotNow             = "not_now"
	NotNowTeam         = "not_now_team"
	NotNowPayment      = "not_now_payment"
	UnknownProduct     = "unknown_product"
	TryAgain           = "try_again"

	// Inline button labels.
	ButtonCreateTeam = "button_create_team"
	ButtonClaim      = "button_claim"
	ButtonSettle     = "button_settle"
	ButtonYes        = "button_yes"
	ButtonNo         = "button_no"
)
