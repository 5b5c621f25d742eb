package services

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/shopspring/decimal"
)

// memBank is an in-memory stand-in for postgres. WithTransaction snapshots
// every table and restores the snapshot when fn fails, which is what the
// services rely on for atomicity.
type memBank struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]models.Account
	transfers    map[uuid.UUID]models.Transfer
	applications map[uuid.UUID]models.Application
	cards        map[uuid.UUID]models.Card
	wallets      map[uuid.UUID]models.CryptoWallet
	exchanges    map[uuid.UUID]models.CryptoExchange
	deposits     map[uuid.UUID]models.Deposit
	withdrawals  map[uuid.UUID]models.Withdrawal
	payees       map[uuid.UUID]models.Payee
	payments     map[uuid.UUID]models.BillPayment
	convs        map[uuid.UUID]models.Conversation
	messages     map[uuid.UUID]models.Message

	// failAdjust makes AdjustBalance on the given account fail.
	failAdjust map[uuid.UUID]error
	writes     int
}

func newMemBank() *memBank {
	return &memBank{
		accounts:     map[uuid.UUID]models.Account{},
		transfers:    map[uuid.UUID]models.Transfer{},
		applications: map[uuid.UUID]models.Application{},
		cards:        map[uuid.UUID]models.Card{},
		wallets:      map[uuid.UUID]models.CryptoWallet{},
		exchanges:    map[uuid.UUID]models.CryptoExchange{},
		deposits:     map[uuid.UUID]models.Deposit{},
		withdrawals:  map[uuid.UUID]models.Withdrawal{},
		payees:       map[uuid.UUID]models.Payee{},
		payments:     map[uuid.UUID]models.BillPayment{},
		convs:        map[uuid.UUID]models.Conversation{},
		messages:     map[uuid.UUID]models.Message{},
		failAdjust:   map[uuid.UUID]error{},
	}
}

func cloneMap[T any](m map[uuid.UUID]T) map[uuid.UUID]T {
	out := make(map[uuid.UUID]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (b *memBank) snapshot() *memBank {
	return &memBank{
		accounts:     cloneMap(b.accounts),
		transfers:    cloneMap(b.transfers),
		applications: cloneMap(b.applications),
		cards:        cloneMap(b.cards),
		wallets:      cloneMap(b.wallets),
		exchanges:    cloneMap(b.exchanges),
		deposits:     cloneMap(b.deposits),
		withdrawals:  cloneMap(b.withdrawals),
		payees:       cloneMap(b.payees),
		payments:     cloneMap(b.payments),
		convs:        cloneMap(b.convs),
		messages:     cloneMap(b.messages),
		writes:       b.writes,
	}
}

func (b *memBank) restore(s *memBank) {
	b.accounts, b.transfers, b.applications, b.cards = s.accounts, s.transfers, s.applications, s.cards
	b.wallets, b.exchanges, b.deposits, b.withdrawals = s.wallets, s.exchanges, s.deposits, s.withdrawals
	b.payees, b.payments, b.convs, b.messages = s.payees, s.payments, s.convs, s.messages
	b.writes = s.writes
}

// fakeTx satisfies pgx.Tx for code that only passes it through to repositories
// or opens savepoints on it.
type fakeTx struct {
	pgx.Tx
}

func (t fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t fakeTx) Commit(context.Context) error          { return nil }
func (t fakeTx) Rollback(context.Context) error        { return nil }

// fakeStore implements database.Store over a memBank. The repositories ignore
// the DBTX they are handed, so the query methods are never reached.
type fakeStore struct {
	bank *memBank
	txMu sync.Mutex
}

var _ database.Store = (*fakeStore)(nil)

func (s *fakeStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("fakeStore: Exec not supported")
}

func (s *fakeStore) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("fakeStore: Query not supported")
}

func (s *fakeStore) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("fakeStore: QueryRow not supported")
}

// WithTransaction serializes transactions, which stands in for row locks.
func (s *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.bank.mu.Lock()
	snap := s.bank.snapshot()
	s.bank.mu.Unlock()
	if err := fn(ctx, fakeTx{}); err != nil {
		s.bank.mu.Lock()
		s.bank.restore(snap)
		s.bank.mu.Unlock()
		return err
	}
	return nil
}

func checkViolation() error {
	return &pgconn.PgError{Code: "23514", Message: "balance check"}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key"}
}

type fakeAccounts struct{ b *memBank }

func (r fakeAccounts) Create(_ context.Context, _ database.DBTX, a *models.Account) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, existing := range r.b.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return uniqueViolation()
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.b.accounts[a.ID] = *a
	r.b.writes++
	return nil
}

func (r fakeAccounts) FindByID(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Account, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	a, ok := r.b.accounts[id]
	if !ok {
		return models.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (r fakeAccounts) FindByIDForUpdate(ctx context.Context, db database.DBTX, id uuid.UUID) (models.Account, error) {
	return r.FindByID(ctx, db, id)
}

func (r fakeAccounts) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Account, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Account
	for _, a := range r.b.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (r fakeAccounts) FirstActiveByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) (models.Account, error) {
	accounts, _ := r.ListByUser(ctx, db, userID)
	for _, a := range accounts {
		if a.IsActive() {
			return a, nil
		}
	}
	return models.Account{}, pgx.ErrNoRows
}

func (r fakeAccounts) AdjustBalance(_ context.Context, _ database.DBTX, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.failAdjust[id]; err != nil {
		return decimal.Zero, err
	}
	a, ok := r.b.accounts[id]
	if !ok {
		return decimal.Zero, pgx.ErrNoRows
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, checkViolation()
	}
	a.Balance = next
	r.b.accounts[id] = a
	r.b.writes++
	return next, nil
}

func (r fakeAccounts) UpdateStatus(_ context.Context, _ database.DBTX, id uuid.UUID, status models.AccountStatus) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	a, ok := r.b.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status = status
	r.b.accounts[id] = a
	r.b.writes++
	return nil
}

type fakeTransfers struct{ b *memBank }

func (r fakeTransfers) Create(_ context.Context, _ database.DBTX, t *models.Transfer) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if t.IdempotencyKey != nil {
		for _, existing := range r.b.transfers {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *t.IdempotencyKey {
				return uniqueViolation()
			}
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.b.transfers[t.ID] = *t
	r.b.writes++
	return nil
}

func (r fakeTransfers) FindByID(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Transfer, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	t, ok := r.b.transfers[id]
	if !ok {
		return models.Transfer{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r fakeTransfers) FindByIDForUpdate(ctx context.Context, db database.DBTX, id uuid.UUID) (models.Transfer, error) {
	return r.FindByID(ctx, db, id)
}

func (r fakeTransfers) FindByIdempotencyKey(_ context.Context, _ database.DBTX, key uuid.UUID) (models.Transfer, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, t := range r.b.transfers {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return t, nil
		}
	}
	return models.Transfer{}, pgx.ErrNoRows
}

func (r fakeTransfers) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.Transfer, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Transfer
	for _, t := range r.b.transfers {
		if t.CreatedBy != userID {
			continue
		}
		if accountID != nil && t.FromAccountID != *accountID && (t.ToAccountID == nil || *t.ToAccountID != *accountID) {
			continue
		}
		out = append(out, t)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeTransfers) ListByStatus(_ context.Context, _ database.DBTX, status models.TransferStatus, limit int) ([]models.Transfer, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Transfer
	for _, t := range r.b.transfers {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeTransfers) UpdateStatus(_ context.Context, _ database.DBTX, id uuid.UUID, status models.TransferStatus, approvedBy uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	t, ok := r.b.transfers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status, t.ApprovedBy = status, &approvedBy
	r.b.transfers[id] = t
	r.b.writes++
	return nil
}

type fakeApplications struct{ b *memBank }

func (r fakeApplications) Create(_ context.Context, _ database.DBTX, a *models.Application) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.b.applications[a.ID] = *a
	r.b.writes++
	return nil
}

func (r fakeApplications) FindByIDForUpdate(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Application, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	a, ok := r.b.applications[id]
	if !ok {
		return models.Application{}, pgx.ErrNoRows
	}
	return a, nil
}

func (r fakeApplications) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Application, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Application
	for _, a := range r.b.applications {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r fakeApplications) ListByStatus(_ context.Context, _ database.DBTX, status models.ApplicationStatus, _ int) ([]models.Application, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Application
	for _, a := range r.b.applications {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r fakeApplications) UpdateReview(_ context.Context, _ database.DBTX, id uuid.UUID, status models.ApplicationStatus, notes string, reviewer uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	a, ok := r.b.applications[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status, a.ReviewNotes, a.ReviewedBy = status, notes, &reviewer
	r.b.applications[id] = a
	r.b.writes++
	return nil
}

type fakeCards struct{ b *memBank }

func (r fakeCards) Create(_ context.Context, _ database.DBTX, c *models.Card) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.b.cards[c.ID] = *c
	r.b.writes++
	return nil
}

func (r fakeCards) FindByIDForUpdate(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	c, ok := r.b.cards[id]
	if !ok {
		return models.Card{}, pgx.ErrNoRows
	}
	return c, nil
}

func (r fakeCards) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Card
	for _, c := range r.b.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeCards) ListByStatus(_ context.Context, _ database.DBTX, status models.CardStatus, _ int) ([]models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Card
	for _, c := range r.b.cards {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeCards) UpdateStatus(_ context.Context, _ database.DBTX, id uuid.UUID, status models.CardStatus) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	c, ok := r.b.cards[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Status = status
	r.b.cards[id] = c
	r.b.writes++
	return nil
}

type fakeWallets struct{ b *memBank }

func (r fakeWallets) Create(_ context.Context, _ database.DBTX, w *models.CryptoWallet) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, existing := range r.b.wallets {
		if existing.UserID == w.UserID && existing.Symbol == w.Symbol {
			return uniqueViolation()
		}
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.b.wallets[w.ID] = *w
	r.b.writes++
	return nil
}

func (r fakeWallets) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.CryptoWallet, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.CryptoWallet
	for _, w := range r.b.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r fakeWallets) FindBySymbolForUpdate(_ context.Context, _ database.DBTX, userID uuid.UUID, symbol string) (models.CryptoWallet, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, w := range r.b.wallets {
		if w.UserID == userID && w.Symbol == symbol {
			return w, nil
		}
	}
	return models.CryptoWallet{}, pgx.ErrNoRows
}

func (r fakeWallets) AdjustBalance(_ context.Context, _ database.DBTX, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	w, ok := r.b.wallets[id]
	if !ok {
		return decimal.Zero, pgx.ErrNoRows
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, checkViolation()
	}
	w.Balance = next
	r.b.wallets[id] = w
	r.b.writes++
	return next, nil
}

func (r fakeWallets) CreateExchange(_ context.Context, _ database.DBTX, e *models.CryptoExchange) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.b.exchanges[e.ID] = *e
	r.b.writes++
	return nil
}

func (r fakeWallets) ListExchanges(_ context.Context, _ database.DBTX, userID uuid.UUID, _ int) ([]models.CryptoExchange, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.CryptoExchange
	for _, e := range r.b.exchanges {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDeposits struct{ b *memBank }

func (r fakeDeposits) Create(_ context.Context, _ database.DBTX, d *models.Deposit) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.b.deposits[d.ID] = *d
	r.b.writes++
	return nil
}

func (r fakeDeposits) FindByIDForUpdate(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Deposit, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, ok := r.b.deposits[id]
	if !ok {
		return models.Deposit{}, pgx.ErrNoRows
	}
	return d, nil
}

func (r fakeDeposits) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Deposit, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Deposit
	for _, d := range r.b.deposits {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeDeposits) ListByStatus(_ context.Context, _ database.DBTX, status models.RequestStatus, _ int) ([]models.Deposit, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Deposit
	for _, d := range r.b.deposits {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeDeposits) UpdateReview(_ context.Context, _ database.DBTX, id uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, ok := r.b.deposits[id]
	if !ok {
		return pgx.ErrNoRows
	}
	d.Status, d.AdminNotes, d.ReviewedBy = status, notes, &reviewer
	r.b.deposits[id] = d
	r.b.writes++
	return nil
}

type fakeWithdrawals struct{ b *memBank }

func (r fakeWithdrawals) Create(_ context.Context, _ database.DBTX, w *models.Withdrawal) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.b.withdrawals[w.ID] = *w
	r.b.writes++
	return nil
}

func (r fakeWithdrawals) FindByIDForUpdate(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Withdrawal, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	w, ok := r.b.withdrawals[id]
	if !ok {
		return models.Withdrawal{}, pgx.ErrNoRows
	}
	return w, nil
}

func (r fakeWithdrawals) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Withdrawal, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.b.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r fakeWithdrawals) ListByStatus(_ context.Context, _ database.DBTX, status models.RequestStatus, _ int) ([]models.Withdrawal, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.b.withdrawals {
		if status == "" || w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r fakeWithdrawals) UpdateReview(_ context.Context, _ database.DBTX, id uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	w, ok := r.b.withdrawals[id]
	if !ok {
		return pgx.ErrNoRows
	}
	w.Status, w.AdminNotes, w.ReviewedBy = status, notes, &reviewer
	r.b.withdrawals[id] = w
	r.b.writes++
	return nil
}

type fakeBillPay struct{ b *memBank }

func (r fakeBillPay) CreatePayee(_ context.Context, _ database.DBTX, p *models.Payee) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.b.payees[p.ID] = *p
	r.b.writes++
	return nil
}

func (r fakeBillPay) FindPayee(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Payee, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	p, ok := r.b.payees[id]
	if !ok {
		return models.Payee{}, pgx.ErrNoRows
	}
	return p, nil
}

func (r fakeBillPay) ListPayees(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Payee, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Payee
	for _, p := range r.b.payees {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakeBillPay) CreatePayment(_ context.Context, _ database.DBTX, p *models.BillPayment) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.b.payments[p.ID] = *p
	r.b.writes++
	return nil
}

func (r fakeBillPay) ListPayments(_ context.Context, _ database.DBTX, userID uuid.UUID, _ int) ([]models.BillPayment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.BillPayment
	for _, p := range r.b.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSupport struct{ b *memBank }

func (r fakeSupport) CreateConversation(_ context.Context, _ database.DBTX, c *models.Conversation) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.b.convs[c.ID] = *c
	r.b.writes++
	return nil
}

func (r fakeSupport) FindConversation(_ context.Context, _ database.DBTX, id uuid.UUID) (models.Conversation, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	c, ok := r.b.convs[id]
	if !ok {
		return models.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (r fakeSupport) ListByUser(_ context.Context, _ database.DBTX, userID uuid.UUID) ([]models.Conversation, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.b.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeSupport) ListByStatus(_ context.Context, _ database.DBTX, status models.ConversationStatus, _ int) ([]models.Conversation, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.b.convs {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeSupport) UpdateConversation(_ context.Context, _ database.DBTX, id uuid.UUID, status models.ConversationStatus, priority models.Priority) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	c, ok := r.b.convs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Status, c.Priority = status, priority
	r.b.convs[id] = c
	r.b.writes++
	return nil
}

func (r fakeSupport) Touch(context.Context, database.DBTX, uuid.UUID) error { return nil }

func (r fakeSupport) AddMessage(_ context.Context, _ database.DBTX, m *models.Message) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.b.messages[m.ID] = *m
	r.b.writes++
	return nil
}

func (r fakeSupport) ListMessages(_ context.Context, _ database.DBTX, convID uuid.UUID) ([]models.Message, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []models.Message
	for _, m := range r.b.messages {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeSupport) MarkRead(_ context.Context, _ database.DBTX, convID uuid.UUID, sender models.SenderType) (int64, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var n int64
	for id, m := range r.b.messages {
		if m.ConversationID == convID && m.SenderType == sender && !m.IsRead {
			m.IsRead = true
			r.b.messages[id] = m
			n++
		}
	}
	return n, nil
}

// recordingNotifier captures what a service announced after commit.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []views.ChangeEvent
	events  []views.BankEvent
}

func (n *recordingNotifier) Changed(_ context.Context, changes ...views.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, changes...)
}

func (n *recordingNotifier) Emit(_ context.Context, ev views.BankEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) eventTypes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

// seedAccount stores an active USD account and returns it.
func seedAccount(b *memBank, userID uuid.UUID, accountType models.AccountType, balance string) models.Account {
	a := models.Account{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: uuid.NewString()[:12],
		RoutingNumber: models.DefaultRoutingNumber,
		Type:          accountType,
		Balance:       decimal.RequireFromString(balance),
		Status:        models.AccountActive,
		Currency:      "USD",
	}
	b.accounts[a.ID] = a
	return a
}

func amountOf(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
