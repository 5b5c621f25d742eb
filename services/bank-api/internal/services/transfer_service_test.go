package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	reqviews "github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type transferFixture struct {
	bank     *memBank
	notifier *recordingNotifier
	svc      TransferService
	user     Caller
	admin    Caller
}

func newTransferFixture() *transferFixture {
	bank := newMemBank()
	notifier := &recordingNotifier{}
	svc := NewTransferService(zap.NewNop(), &fakeStore{bank: bank}, fakeAccounts{bank}, fakeTransfers{bank}, notifier)
	return &transferFixture{
		bank:     bank,
		notifier: notifier,
		svc:      svc,
		user:     Caller{ID: uuid.New(), Email: "jane@example.com", Role: pkg.RoleUser},
		admin:    Caller{ID: uuid.New(), Email: "ops@example.com", Role: pkg.RoleAdmin},
	}
}

func internalReq(from, to models.Account, amount string) reqviews.InternalTransferRequest {
	return reqviews.InternalTransferRequest{
		FromAccountID: from.ID.String(),
		ToAccountID:   to.ID.String(),
		Amount:        amountOf(amount),
		Memo:          "rent",
	}
}

func TestCreateInternal_MovesMoneyAndStaysPending(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")

	transfer, replayed, err := f.svc.CreateInternal(context.Background(), "trace-1", f.user, internalReq(checking, savings, "200.00"), nil)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, models.TransferPending, transfer.Status)
	assert.Equal(t, f.user.ID, transfer.CreatedBy)

	assert.Equal(t, "300", f.bank.accounts[checking.ID].Balance.String())
	assert.Equal(t, "200", f.bank.accounts[savings.ID].Balance.String())
	assert.Len(t, f.bank.transfers, 1)
	assert.Equal(t, []string{pkg.EventTransferCreated}, f.notifier.eventTypes())
	assert.Len(t, f.notifier.changes, 3)
}

func TestCreateInternal_InsufficientFundsWritesNothing(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")

	_, _, err := f.svc.CreateInternal(context.Background(), "trace-2", f.user, internalReq(checking, savings, "600.00"), nil)
	require.Error(t, err)
	assert.True(t, pkg.HasCode(err, pkg.ErrInsufficientFundsCode))

	assert.Equal(t, "500", f.bank.accounts[checking.ID].Balance.String())
	assert.True(t, f.bank.accounts[savings.ID].Balance.IsZero())
	assert.Empty(t, f.bank.transfers)
	assert.Zero(t, f.bank.writes)
	assert.Empty(t, f.notifier.events)
}

func TestCreateInternal_Validation(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")

	tests := []struct {
		name string
		req  reqviews.InternalTransferRequest
		code pkg.ErrorCode
	}{
		{"same account", internalReq(checking, checking, "10.00"), pkg.ErrSameAccountCode},
		{"missing amount", reqviews.InternalTransferRequest{FromAccountID: checking.ID.String(), ToAccountID: savings.ID.String()}, pkg.ErrMissingInformationCode},
		{"missing source", reqviews.InternalTransferRequest{ToAccountID: savings.ID.String(), Amount: amountOf("1")}, pkg.ErrMissingInformationCode},
		{"zero amount", internalReq(checking, savings, "0"), pkg.ErrInvalidInputCode},
		{"negative amount", internalReq(checking, savings, "-5"), pkg.ErrInvalidInputCode},
		{"three decimals", internalReq(checking, savings, "1.005"), pkg.ErrInvalidInputCode},
		{"bad uuid", reqviews.InternalTransferRequest{FromAccountID: "nope", ToAccountID: savings.ID.String(), Amount: amountOf("1")}, pkg.ErrInvalidInputCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, tt.req, nil)
			require.Error(t, err)
			assert.True(t, pkg.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Zero(t, f.bank.writes)
}

func TestCreateInternal_ForeignAccountIsNotFound(t *testing.T) {
	f := newTransferFixture()
	mine := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	theirs := seedAccount(f.bank, uuid.New(), models.PersonalChecking, "0")

	_, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(mine, theirs, "10.00"), nil)
	assert.True(t, pkg.HasCode(err, pkg.ErrRecordNotFoundCode))

	_, _, err = f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(theirs, mine, "10.00"), nil)
	assert.True(t, pkg.HasCode(err, pkg.ErrRecordNotFoundCode))
	assert.Zero(t, f.bank.writes)
}

func TestCreateInternal_InactiveAccount(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	savings.Status = models.AccountSuspended
	f.bank.accounts[savings.ID] = savings

	_, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "10.00"), nil)
	assert.True(t, pkg.HasCode(err, pkg.ErrAccountInactiveCode))
}

func TestCreateInternal_RollsBackWhenCreditFails(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	f.bank.failAdjust[savings.ID] = errors.New("connection reset")

	_, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "200.00"), nil)
	require.Error(t, err)
	assert.True(t, pkg.HasCode(err, pkg.ErrTransferFailedCode))

	// debit and transfer row are both undone
	assert.Equal(t, "500", f.bank.accounts[checking.ID].Balance.String())
	assert.Empty(t, f.bank.transfers)
	assert.Empty(t, f.notifier.events)
}

func TestCreateInternal_IdempotentReplay(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	key := uuid.New()

	first, replayed, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "100.00"), &key)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "100.00"), &key)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "400", f.bank.accounts[checking.ID].Balance.String())
	assert.Len(t, f.bank.transfers, 1)

	stranger := Caller{ID: uuid.New(), Role: pkg.RoleUser}
	_, _, err = f.svc.CreateInternal(context.Background(), "trace", stranger, internalReq(checking, savings, "100.00"), &key)
	assert.True(t, pkg.HasCode(err, pkg.ErrIdempotencyConflictCode))
}

// laggingReplicaTransfers misses every idempotency key unless it is read
// inside a transaction, the way a replica behind the primary would.
type laggingReplicaTransfers struct {
	fakeTransfers
}

func (r laggingReplicaTransfers) FindByIdempotencyKey(ctx context.Context, dbtx database.DBTX, key uuid.UUID) (models.Transfer, error) {
	if _, ok := dbtx.(pgx.Tx); !ok {
		return models.Transfer{}, pgx.ErrNoRows
	}
	return r.fakeTransfers.FindByIdempotencyKey(ctx, dbtx, key)
}

func TestCreateInternal_ReplayReadsFromPrimary(t *testing.T) {
	f := newTransferFixture()
	f.svc = NewTransferService(zap.NewNop(), &fakeStore{bank: f.bank}, fakeAccounts{f.bank}, laggingReplicaTransfers{fakeTransfers{f.bank}}, f.notifier)
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	key := uuid.New()

	first, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "100.00"), &key)
	require.NoError(t, err)

	second, replayed, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "100.00"), &key)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "400", f.bank.accounts[checking.ID].Balance.String())
}

func TestCreateInternal_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "100.00"), nil)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.True(t, f.bank.accounts[checking.ID].Balance.IsZero())
	assert.Equal(t, "500", f.bank.accounts[savings.ID].Balance.String())
}

func TestCreateExternal_DebitsSourceOnly(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")

	transfer, _, err := f.svc.CreateExternal(context.Background(), "trace", f.user, reqviews.ExternalTransferRequest{
		FromAccountID: checking.ID.String(),
		AccountNumber: "123456789012",
		RoutingNumber: "021000021",
		Amount:        amountOf("50.25"),
	}, nil)
	require.NoError(t, err)
	assert.True(t, transfer.IsExternal())
	assert.Equal(t, models.TransferPending, transfer.Status)
	assert.Equal(t, "449.75", f.bank.accounts[checking.ID].Balance.String())

	_, _, err = f.svc.CreateExternal(context.Background(), "trace", f.user, reqviews.ExternalTransferRequest{
		FromAccountID: checking.ID.String(),
		AccountNumber: "123456789012",
		RoutingNumber: "0210",
		Amount:        amountOf("1"),
	}, nil)
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))
}

func TestCreateExternal_ValidatesAccountAndRoutingNumbers(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")

	tests := []struct {
		name    string
		account string
		routing string
		amount  string // empty leaves the amount out
		code    pkg.ErrorCode
	}{
		{"missing account", "", "021000021", "x", pkg.ErrMissingInformationCode},
		{"missing routing reported before bad account", "12ab", "", "x", pkg.ErrMissingInformationCode},
		{"missing amount reported before bad routing", "1234", "02", "", pkg.ErrMissingInformationCode},
		{"account too short", "123", "021000021", "x", pkg.ErrInvalidInputCode},
		{"account too long", "12345678901234567890123456789012345", "021000021", "x", pkg.ErrInvalidInputCode},
		{"signed account", "-12345", "021000021", "x", pkg.ErrInvalidInputCode},
		{"decimal account", "1234.5", "021000021", "x", pkg.ErrInvalidInputCode},
		{"routing with letters", "123456", "02100002A", "x", pkg.ErrInvalidInputCode},
		{"routing too long", "123456", "0210000210", "x", pkg.ErrInvalidInputCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := amountOf("1")
			if tt.amount == "" {
				amount = nil
			}
			_, _, err := f.svc.CreateExternal(context.Background(), "trace", f.user, reqviews.ExternalTransferRequest{
				FromAccountID: checking.ID.String(),
				AccountNumber: tt.account,
				RoutingNumber: tt.routing,
				Amount:        amount,
			}, nil)
			assert.True(t, pkg.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Equal(t, "500", f.bank.accounts[checking.ID].Balance.String())

	_, _, err := f.svc.CreateExternal(context.Background(), "trace", f.user, reqviews.ExternalTransferRequest{
		FromAccountID: checking.ID.String(),
		AccountNumber: "1234",
		RoutingNumber: "021000021",
		Amount:        amountOf("1"),
	}, nil)
	require.NoError(t, err)
}

func TestUpdateStatus_CancelReversesInternalTransfer(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	transfer, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "200.00"), nil)
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), "trace", f.admin, transfer.ID, string(models.TransferCancelled))
	require.NoError(t, err)
	assert.Equal(t, models.TransferCancelled, updated.Status)
	assert.Equal(t, f.admin.ID, *updated.ApprovedBy)
	assert.Equal(t, "500", f.bank.accounts[checking.ID].Balance.String())
	assert.True(t, f.bank.accounts[savings.ID].Balance.IsZero())

	// terminal
	_, err = f.svc.UpdateStatus(context.Background(), "trace", f.admin, transfer.ID, string(models.TransferCompleted))
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidTransitionCode))
}

func TestUpdateStatus_CompleteKeepsBalances(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	transfer, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "200.00"), nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), "trace", f.admin, transfer.ID, string(models.TransferCompleted))
	require.NoError(t, err)
	assert.Equal(t, "300", f.bank.accounts[checking.ID].Balance.String())
	assert.Equal(t, "200", f.bank.accounts[savings.ID].Balance.String())
	assert.Contains(t, f.notifier.eventTypes(), pkg.EventTransferStatusChanged)
}

func TestUpdateStatus_ReversalNeedsDestinationFunds(t *testing.T) {
	f := newTransferFixture()
	checking := seedAccount(f.bank, f.user.ID, models.PersonalChecking, "500.00")
	savings := seedAccount(f.bank, f.user.ID, models.PersonalSavings, "0")
	transfer, _, err := f.svc.CreateInternal(context.Background(), "trace", f.user, internalReq(checking, savings, "200.00"), nil)
	require.NoError(t, err)

	drained := f.bank.accounts[savings.ID]
	drained.Balance = drained.Balance.Sub(*amountOf("150"))
	f.bank.accounts[savings.ID] = drained

	_, err = f.svc.UpdateStatus(context.Background(), "trace", f.admin, transfer.ID, string(models.TransferFailed))
	assert.True(t, pkg.HasCode(err, pkg.ErrInsufficientFundsCode))
	assert.Equal(t, models.TransferPending, f.bank.transfers[transfer.ID].Status)
}

func TestListByStatus_RejectsUnknownStatus(t *testing.T) {
	f := newTransferFixture()
	_, err := f.svc.ListByStatus(context.Background(), "trace", "bogus")
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))

	transfers, err := f.svc.ListByStatus(context.Background(), "trace", "")
	require.NoError(t, err)
	assert.Empty(t, transfers)
}
