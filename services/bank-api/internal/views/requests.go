package views

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date is a calendar date sent as "YYYY-MM-DD". Full RFC3339 timestamps are
// accepted too and truncated to the day.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(dateLayout))), nil
}

// TimePtr returns nil for a nil date.
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// Ids arrive as strings so an empty value can be reported as missing
// information instead of a bind error.

type InternalTransferRequest struct {
	FromAccountID string           `json:"fromAccountId"`
	ToAccountID   string           `json:"toAccountId"`
	Amount        *decimal.Decimal `json:"amount"`
	Memo          string           `json:"memo" binding:"max=280"`
}

type ExternalTransferRequest struct {
	FromAccountID string           `json:"fromAccountId"`
	AccountNumber string           `json:"accountNumber"`
	RoutingNumber string           `json:"routingNumber"`
	Amount        *decimal.Decimal `json:"amount"`
	Memo          string           `json:"memo" binding:"max=280"`
}

type PayeeRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	AccountNumber string `json:"accountNumber" binding:"required,max=34"`
	Category      string `json:"category" binding:"max=50"`
}

type BillPaymentRequest struct {
	PayeeID   string           `json:"payeeId"`
	AccountID string           `json:"accountId"`
	Amount    *decimal.Decimal `json:"amount"`
	Memo      string           `json:"memo" binding:"max=280"`
}

type ApplicationRequest struct {
	Type            string           `json:"type" binding:"required"`
	FullName        string           `json:"fullName" binding:"required,max=255"`
	Email           string           `json:"email" binding:"required,email"`
	Phone           string           `json:"phone" binding:"max=50"`
	DateOfBirth     *Date            `json:"dateOfBirth"`
	Address         string           `json:"address"`
	AnnualIncome    *decimal.Decimal `json:"annualIncome"`
	BusinessName    string           `json:"businessName" binding:"max=255"`
	RequestedAmount *decimal.Decimal `json:"requestedAmount"`
	RequestedLimit  *decimal.Decimal `json:"requestedLimit"`
}

type CardRequest struct {
	AccountID string `json:"accountId" binding:"required,uuid"`
	Network   string `json:"network" binding:"required,oneof=visa mastercard"`
}

type WalletRequest struct {
	Symbol string `json:"symbol" binding:"required,max=10"`
}

type ExchangeRequest struct {
	From   string           `json:"from" binding:"required"`
	To     string           `json:"to" binding:"required"`
	Amount *decimal.Decimal `json:"amount"`
}

type DepositRequest struct {
	AccountID string           `json:"accountId"`
	Method    string           `json:"method" binding:"required"`
	Amount    *decimal.Decimal `json:"amount"`
	Reference string           `json:"reference"`
}

type WithdrawalRequest struct {
	AccountID   string           `json:"accountId"`
	Method      string           `json:"method" binding:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	Destination string           `json:"destination"`
}

type ConversationRequest struct {
	Subject  string `json:"subject" binding:"required,max=255"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
}

type MessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// StatusUpdateRequest is the admin review payload shared by every workflow.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type ConversationUpdateRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}
