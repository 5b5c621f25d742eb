package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/shopspring/decimal"
)

type ProfileView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	KycStatus string    `json:"kycStatus"`
}

func NewProfileView(p models.Profile) ProfileView {
	return ProfileView{ID: p.ID, Email: p.Email, FullName: p.FullName, Phone: p.Phone,
		Role: string(p.Role), KycStatus: string(p.KycStatus)}
}

type AccountView struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	AccountNumber string          `json:"accountNumber"`
	RoutingNumber string          `json:"routingNumber"`
	Type          string          `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func NewAccountView(a models.Account) AccountView {
	return AccountView{ID: a.ID, UserID: a.UserID, AccountNumber: a.AccountNumber, RoutingNumber: a.RoutingNumber,
		Type: string(a.Type), Balance: a.Balance, Status: string(a.Status),
		Currency: a.Currency, CreatedAt: a.CreatedAt}
}

type TransferView struct {
	ID                    uuid.UUID       `json:"id"`
	FromAccountID         uuid.UUID       `json:"fromAccountId"`
	ToAccountID           *uuid.UUID      `json:"toAccountId"`
	ExternalAccountNumber string          `json:"externalAccountNumber,omitempty"`
	ExternalRoutingNumber string          `json:"externalRoutingNumber,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Status                string          `json:"status"`
	Memo                  string          `json:"memo"`
	CreatedBy             uuid.UUID       `json:"createdBy"`
	ApprovedBy            *uuid.UUID      `json:"approvedBy"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func NewTransferView(t models.Transfer) TransferView {
	return TransferView{ID: t.ID, FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID,
		ExternalAccountNumber: t.ExternalAccountNumber, ExternalRoutingNumber: t.ExternalRoutingNumber,
		Amount: t.Amount, Status: string(t.Status), Memo: t.Memo, CreatedBy: t.CreatedBy,
		ApprovedBy: t.ApprovedBy, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

// Overview is the dashboard payload.
type Overview struct {
	Profile         ProfileView    `json:"profile"`
	Accounts        []AccountView  `json:"accounts"`
	RecentTransfers []TransferView `json:"recentTransfers"`
}

type ApplicationView struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Type            string          `json:"type"`
	FullName        string          `json:"fullName"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	DateOfBirth     *time.Time      `json:"dateOfBirth,omitempty"`
	Address         string          `json:"address"`
	AnnualIncome    decimal.Decimal `json:"annualIncome"`
	BusinessName    string          `json:"businessName,omitempty"`
	RequestedAmount decimal.Decimal `json:"requestedAmount"`
	RequestedLimit  decimal.Decimal `json:"requestedLimit"`
	Status          string          `json:"status"`
	ReviewNotes     string          `json:"reviewNotes"`
	ReviewedBy      *uuid.UUID      `json:"reviewedBy"`
	ReviewedAt      *time.Time      `json:"reviewedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewApplicationView(a models.Application) ApplicationView {
	return ApplicationView{ID: a.ID, UserID: a.UserID, Type: string(a.Type), FullName: a.FullName, Email: a.Email,
		Phone: a.Phone, DateOfBirth: a.DateOfBirth, Address: a.Address, AnnualIncome: a.AnnualIncome,
		BusinessName: a.BusinessName, RequestedAmount: a.RequestedAmount, RequestedLimit: a.RequestedLimit,
		Status: string(a.Status), ReviewNotes: a.ReviewNotes, ReviewedBy: a.ReviewedBy, ReviewedAt: a.ReviewedAt,
		CreatedAt: a.CreatedAt}
}

// ApplicationDecision reports what an approval produced.
type ApplicationDecision struct {
	Application ApplicationView `json:"application"`
	Account     *AccountView    `json:"account,omitempty"`
	Card        *CardView       `json:"card,omitempty"`
}

type CardView struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"accountId"`
	Network         string          `json:"network"`
	Type            string          `json:"type"`
	MaskedNumber    string          `json:"maskedNumber"`
	ExpiryMonth     int             `json:"expiryMonth"`
	ExpiryYear      int             `json:"expiryYear"`
	Status          string          `json:"status"`
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	AvailableCredit decimal.Decimal `json:"availableCredit"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewCardView(c models.Card) CardView {
	return CardView{ID: c.ID, AccountID: c.AccountID, Network: c.Network, Type: string(c.Type),
		MaskedNumber: c.MaskedNumber, ExpiryMonth: c.ExpiryMonth, ExpiryYear: c.ExpiryYear,
		Status: string(c.Status), CreditLimit: c.CreditLimit, AvailableCredit: c.AvailableCredit,
		CreatedAt: c.CreatedAt}
}

type WalletView struct {
	ID      uuid.UUID       `json:"id"`
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
	Address string          `json:"address"`
}

func NewWalletView(w models.CryptoWallet) WalletView {
	return WalletView{ID: w.ID, Symbol: w.Symbol, Balance: w.Balance, Address: w.Address}
}

type Quote struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToAmount   decimal.Decimal `json:"toAmount"`
	FromPrice  decimal.Decimal `json:"fromPrice"`
	ToPrice    decimal.Decimal `json:"toPrice"`
	FeeRate    decimal.Decimal `json:"feeRate"`
}

type ExchangeView struct {
	ID         uuid.UUID       `json:"id"`
	FromSymbol string          `json:"fromSymbol"`
	ToSymbol   string          `json:"toSymbol"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToAmount   decimal.Decimal `json:"toAmount"`
	Rate       decimal.Decimal `json:"rate"`
	FeeRate    decimal.Decimal `json:"feeRate"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func NewExchangeView(e models.CryptoExchange) ExchangeView {
	return ExchangeView{ID: e.ID, FromSymbol: e.FromSymbol, ToSymbol: e.ToSymbol, FromAmount: e.FromAmount,
		ToAmount: e.ToAmount, Rate: e.Rate, FeeRate: e.FeeRate, CreatedAt: e.CreatedAt}
}

type DepositView struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	AccountID  uuid.UUID       `json:"accountId"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference"`
	Status     string          `json:"status"`
	AdminNotes string          `json:"adminNotes"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func NewDepositView(d models.Deposit) DepositView {
	return DepositView{ID: d.ID, UserID: d.UserID, AccountID: d.AccountID, Method: string(d.Method),
		Amount: d.Amount, Reference: d.Reference, Status: string(d.Status), AdminNotes: d.AdminNotes,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type WithdrawalView struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	AccountID   uuid.UUID       `json:"accountId"`
	Method      string          `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	AdminNotes  string          `json:"adminNotes"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewWithdrawalView(w models.Withdrawal) WithdrawalView {
	return WithdrawalView{ID: w.ID, UserID: w.UserID, AccountID: w.AccountID, Method: string(w.Method),
		Amount: w.Amount, Destination: w.Destination, Status: string(w.Status), AdminNotes: w.AdminNotes,
		CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}
}

type PayeeView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"accountNumber"`
	Category      string    `json:"category"`
}

func NewPayeeView(p models.Payee) PayeeView {
	return PayeeView{ID: p.ID, Name: p.Name, AccountNumber: p.AccountNumber, Category: p.Category}
}

type BillPaymentView struct {
	ID        uuid.UUID       `json:"id"`
	PayeeID   uuid.UUID       `json:"payeeId"`
	AccountID uuid.UUID       `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Memo      string          `json:"memo"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewBillPaymentView(b models.BillPayment) BillPaymentView {
	return BillPaymentView{ID: b.ID, PayeeID: b.PayeeID, AccountID: b.AccountID, Amount: b.Amount,
		Status: b.Status, Memo: b.Memo, CreatedAt: b.CreatedAt}
}

type ConversationView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewConversationView(c models.Conversation) ConversationView {
	return ConversationView{ID: c.ID, UserID: c.UserID, Subject: c.Subject, Status: string(c.Status),
		Priority: string(c.Priority), CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type MessageView struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	SenderType string    `json:"senderType"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewMessageView(m models.Message) MessageView {
	return MessageView{ID: m.ID, SenderID: m.SenderID, SenderType: string(m.SenderType), Body: m.Body,
		Read: m.IsRead, CreatedAt: m.CreatedAt}
}

type NotificationView struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"eventType"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewNotificationView(n models.Notification) NotificationView {
	return NotificationView{ID: n.ID, EventType: n.EventType, Title: n.Title, Body: n.Body,
		Delivered: n.Delivered, CreatedAt: n.CreatedAt}
}

// MapSlice converts a slice of models to views.
func MapSlice[M any, V any](in []M, fn func(M) V) []V {
	out := make([]V, 0, len(in))
	for _, m := range in {
		out = append(out, fn(m))
	}
	return out
}

// OpenedConversation is returned when a support conversation starts.
type OpenedConversation struct {
	Conversation ConversationView `json:"conversation"`
	Message      MessageView      `json:"message"`
}
