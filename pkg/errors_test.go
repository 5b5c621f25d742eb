package pkg

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleSQLError(t *testing.T) {
	logger := zap.NewNop()
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"no rows", pgx.ErrNoRows, ErrRecordNotFoundCode},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrSQLDuplicateCode},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrSQLConflictCode},
		{"balance check", &pgconn.PgError{Code: "23514"}, ErrInsufficientFundsCode},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, ErrSQLInvalidInput},
		{"other pg", &pgconn.PgError{Code: "40001"}, ErrSQLUnknownCode},
		{"not pg", errors.New("conn reset"), ErrSQLUnknownCode},
		{"app error passes", NewCodeError(ErrSameAccountCode), ErrSameAccountCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, HasCode(HandleSQLError("trace", logger, tt.err), tt.code))
		})
	}
	assert.NoError(t, HandleSQLError("trace", logger, nil))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(zap.NewNop(), "trace-9", NewCodeError(ErrInsufficientFundsCode))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, "BUSINESS_INSUFFICIENT_FUNDS", resp.Code)
	assert.Equal(t, "Insufficient Funds", resp.Message)
	assert.Equal(t, "trace-9", resp.TraceID)

	resp = ToErrorResponse(zap.NewNop(), "trace-9", errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, ErrServerCode.Code, resp.Code)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsUniqueViolation(NewCodeError(ErrSQLDuplicateCode)))
}
