package pkg

const (
	HeaderTraceId        string = "X-Trace-Id"
	HeaderRequestId      string = "X-Request-Id"
	HeaderAuthorization  string = "Authorization"
	HeaderIdempotencyKey string = "Idempotency-Key"
)

// gin context / zap field keys
const (
	TraceId        string = "trace_id"
	RequestId      string = "request_id"
	IdempotencyKey string = "idempotency_key"
	UserId         string = "user_id"
	UserRole       string = "user_role"
	UserEmail      string = "user_email"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Bank event types published to the events topic.
const (
	EventTransferCreated       = "transfer.created"
	EventTransferStatusChanged = "transfer.status_changed"
	EventApplicationReviewed   = "application.reviewed"
	EventDepositStatusChanged  = "deposit.status_changed"
	EventWithdrawalStatus      = "withdrawal.status_changed"
	EventCardStatusChanged     = "card.status_changed"
	EventCryptoExchanged       = "crypto.exchanged"
	EventBillPaid              = "bill.paid"
	EventSupportReply          = "support.reply"
	EventKycStatusChanged      = "kyc.status_changed"
)
