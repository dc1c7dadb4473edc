package errors_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperror "sweetshop/internal/errors"
)

// TestNewDBError_UnreachableStore testa que falhas de conexão com o banco
// viram um erro retryável (503 STORE_UNAVAILABLE), nunca um 500 genérico.
func TestNewDBError_UnreachableStore(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"timeout da requisição", context.DeadlineExceeded},
		{"timeout encapsulado", fmt.Errorf("consulta falhou: %w", context.DeadlineExceeded)},
		{"conexão quebrada", driver.ErrBadConn},
		{"classe 08 do PostgreSQL", &pq.Error{Code: "08006"}},
	}

	for _, tc := range cases {
		err := apperror.NewDBError("Falha ao buscar doce", tc.err)

		assert.IsType(t, &apperror.UnavailableError{}, err, tc.name)
		status, category, _ := apperror.MapToHTTPStatus(err)
		assert.Equal(t, http.StatusServiceUnavailable, status, tc.name)
		assert.Equal(t, "STORE_UNAVAILABLE", category, tc.name)
	}
}

// TestNewDBError_StatementFailure testa que falhas do comando em si continuam
// sendo erros internos (500): o cliente não tem o que repetir.
func TestNewDBError_StatementFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"erro genérico do driver", errors.New("erro de sintaxe na consulta")},
		{"violação de constraint", &pq.Error{Code: "23505"}},
	}

	for _, tc := range cases {
		err := apperror.NewDBError("Falha ao inserir doce", tc.err)

		assert.IsType(t, &apperror.InternalError{}, err, tc.name)
		status, _, _ := apperror.MapToHTTPStatus(err)
		assert.Equal(t, http.StatusInternalServerError, status, tc.name)
	}
}
