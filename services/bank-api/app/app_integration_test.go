//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/auth"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/testutil"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	jwtSecret   = "integration-secret-integration-secret"
	jwtIssuer   = "resilient-banking"
	eventsTopic = "bank-events-test"
)

type bankServer struct {
	baseURL string
	db      *database.DB
	tokens  *auth.TokenManager
}

type envelope struct {
	TraceID string          `json:"traceId"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

// startBankAPI runs the bank-api in-process against fresh postgres, redis and kafka containers.
func startBankAPI(t *testing.T) *bankServer {
	t.Helper()

	type started struct {
		addr      string
		terminate func()
		err       error
	}
	pgCh, redisCh, kafkaCh := make(chan started, 1), make(chan started, 1), make(chan started, 1)
	go func() { a, term, err := testutil.StartPostgres(); pgCh <- started{a, term, err} }()
	go func() { a, term, err := testutil.StartRedis(); redisCh <- started{a, term, err} }()
	go func() { a, term, err := testutil.StartKafka(); kafkaCh <- started{a, term, err} }()
	pg, rd, kf := <-pgCh, <-redisCh, <-kafkaCh
	for _, s := range []started{pg, rd, kf} {
		if s.terminate != nil {
			t.Cleanup(s.terminate)
		}
	}
	require.NoError(t, pg.err)
	require.NoError(t, rd.err)
	require.NoError(t, kf.err)
	require.NoError(t, testutil.EnsureTopic(kf.addr, eventsTopic, 4))

	port, err := testutil.FreePort()
	require.NoError(t, err)

	for k, v := range map[string]string{
		"APP_PORT":                  fmt.Sprintf("%d", port),
		"APP_PRIMARY_DB_ADDR":       pg.addr,
		"APP_REPLICA_DB_ADDR":       pg.addr,
		"APP_REDIS_ADDR":            rd.addr,
		"APP_KAFKA_BROKERS":         kf.addr,
		"APP_KAFKA_EVENTS_TOPIC":    eventsTopic,
		"APP_AES_KEY":               testutil.AesKey,
		"APP_JWT_SECRET":            jwtSecret,
		"APP_JWT_ISSUER":            jwtIssuer,
		"APP_RATE_LIMIT_PER_SEC":    "1000",
		"APP_RATE_LIMIT_BURST":      "1000",
		"APP_RATE_LIMIT_PER_WINDOW": "1000",
		"GIN_MODE":                  "test",
	} {
		t.Setenv(k, v)
	}

	pkg.InitLogger("bank-api-test")
	srv, cleanup, err := NewApp(context.Background(), pkg.Logger)
	require.NoError(t, err)
	go func() { _ = srv.ListenAndServe() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		cleanup()
	})

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, testutil.WaitForReady(wctx, baseURL+"/health"))

	db, closeDB, err := database.New(context.Background(), zap.NewNop(), database.Config{PrimaryDSN: pg.addr, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(closeDB)

	return &bankServer{baseURL: baseURL, db: db, tokens: auth.NewTokenManager(jwtSecret, jwtIssuer)}
}

// seedCustomer creates a profile with one checking account per balance and returns a token for it.
func (s *bankServer) seedCustomer(t *testing.T, role pkg.Role, balances ...string) (string, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	profile := models.Profile{ID: uuid.New(), Email: uuid.NewString() + "@resilient.bank", FullName: "Test Customer", Role: role, KycStatus: models.KycVerified}
	require.NoError(t, repositories.NewProfileRepository().Upsert(ctx, s.db, &profile))

	var ids []uuid.UUID
	for _, b := range balances {
		number, err := utils.GenerateAccountNumber()
		require.NoError(t, err)
		acc := models.Account{
			UserID:        profile.ID,
			AccountNumber: number,
			RoutingNumber: models.DefaultRoutingNumber,
			Type:          models.PersonalChecking,
			Balance:       decimal.RequireFromString(b),
			Status:        models.AccountActive,
			Currency:      "USD",
		}
		require.NoError(t, repositories.NewAccountRepository().Create(ctx, s.db, &acc))
		ids = append(ids, acc.ID)
	}

	token, err := s.tokens.Issue(profile.ID, profile.Email, role, time.Hour)
	require.NoError(t, err)
	return token, ids
}

func (s *bankServer) balance(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	acc, err := repositories.NewAccountRepository().FindByID(context.Background(), s.db, accountID)
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func (s *bankServer) do(t *testing.T, method, path, token string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pkg.HeaderAuthorization, "Bearer "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

type transferOut struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func TestBankAPI_TransferLifecycle(t *testing.T) {
	s := startBankAPI(t)
	token, accounts := s.seedCustomer(t, pkg.RoleUser, "500.00", "0.00")
	adminToken, _ := s.seedCustomer(t, pkg.RoleAdmin)
	from, to := accounts[0], accounts[1]

	key := uuid.NewString()
	body := map[string]any{"fromAccountId": from, "toAccountId": to, "amount": "200.00", "memo": "rent"}
	status, resp := s.do(t, http.MethodPost, "/api/v1/transfers/internal", token, body, map[string]string{pkg.HeaderIdempotencyKey: key})
	require.Equal(t, http.StatusCreated, status)
	var created transferOut
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "pending", created.Status)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, "300.00", s.balance(t, from))
	assert.Equal(t, "200.00", s.balance(t, to))

	// same idempotency key replays without moving money again
	status, resp = s.do(t, http.MethodPost, "/api/v1/transfers/internal", token, body, map[string]string{pkg.HeaderIdempotencyKey: key})
	require.Equal(t, http.StatusOK, status)
	var replayed transferOut
	require.NoError(t, json.Unmarshal(resp.Data, &replayed))
	assert.Equal(t, created.ID, replayed.ID)
	assert.Equal(t, "300.00", s.balance(t, from))

	status, resp = s.do(t, http.MethodPost, "/api/v1/transfers/internal", token,
		map[string]any{"fromAccountId": from, "toAccountId": to, "amount": "300.01"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, pkg.ErrInsufficientFundsCode.Code, resp.Code)

	// customers cannot reach the back office
	status, _ = s.do(t, http.MethodPatch, "/api/v1/admin/transfers/"+created.ID.String(), token, map[string]string{"status": "completed"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = s.do(t, http.MethodPatch, "/api/v1/admin/transfers/"+created.ID.String(), adminToken, map[string]string{"status": "cancelled"}, nil)
	require.Equal(t, http.StatusOK, status)
	var cancelled transferOut
	require.NoError(t, json.Unmarshal(resp.Data, &cancelled))
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "500.00", s.balance(t, from))
	assert.Equal(t, "0.00", s.balance(t, to))
}

func TestBankAPI_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	s := startBankAPI(t)
	token, accounts := s.seedCustomer(t, pkg.RoleUser, "500.00", "0.00")
	from, to := accounts[0], accounts[1]

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := s.do(t, http.MethodPost, "/api/v1/transfers/internal", token,
				map[string]any{"fromAccountId": from, "toAccountId": to, "amount": "100.00"}, nil)
			mu.Lock()
			statuses[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, statuses[http.StatusCreated])
	assert.Equal(t, 5, statuses[http.StatusUnprocessableEntity])
	assert.Equal(t, "0.00", s.balance(t, from))
	assert.Equal(t, "500.00", s.balance(t, to))
}

func TestBankAPI_RejectsMissingToken(t *testing.T) {
	s := startBankAPI(t)
	status, _ := s.do(t, http.MethodGet, "/api/v1/accounts", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type applicationOut struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	ReviewedBy  *uuid.UUID `json:"reviewedBy"`
}

// Neither caller has a profile row or has called /me; the tokens alone must be enough.
func TestBankAPI_TokenOnlyCallersSubmitAndApprove(t *testing.T) {
	s := startBankAPI(t)
	userID, adminID := uuid.New(), uuid.New()
	token, err := s.tokens.Issue(userID, "first-call@resilient.bank", pkg.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := s.tokens.Issue(adminID, "", pkg.RoleAdmin, time.Hour)
	require.NoError(t, err)

	body := map[string]any{
		"type":        "personal_checking",
		"fullName":    "First Call",
		"email":       "first-call@resilient.bank",
		"dateOfBirth": "1990-01-01",
		"address":     "1 Main St",
	}
	status, resp := s.do(t, http.MethodPost, "/api/v1/applications", token, body, nil)
	require.Equal(t, http.StatusCreated, status, resp.Code)
	var submitted applicationOut
	require.NoError(t, json.Unmarshal(resp.Data, &submitted))
	require.NotNil(t, submitted.DateOfBirth)
	assert.Equal(t, "1990-01-01", submitted.DateOfBirth.Format("2006-01-02"))

	status, resp = s.do(t, http.MethodPatch, "/api/v1/admin/applications/"+submitted.ID.String(), adminToken,
		map[string]any{"status": "approved", "notes": "ok"}, nil)
	require.Equal(t, http.StatusOK, status, resp.Code)
	var decision struct {
		Application applicationOut `json:"application"`
		Account     *struct {
			ID uuid.UUID `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &decision))
	assert.Equal(t, "approved", decision.Application.Status)
	require.NotNil(t, decision.Application.ReviewedBy)
	assert.Equal(t, adminID, *decision.Application.ReviewedBy)
	require.NotNil(t, decision.Account)

	profiles := repositories.NewProfileRepository()
	admin, err := profiles.FindByID(context.Background(), s.db, adminID)
	require.NoError(t, err)
	assert.Equal(t, pkg.RoleAdmin, admin.Role)
	assert.Equal(t, adminID.String()+"@profiles.invalid", admin.Email)
	user, err := profiles.FindByID(context.Background(), s.db, userID)
	require.NoError(t, err)
	assert.Equal(t, "first-call@resilient.bank", user.Email)
}
