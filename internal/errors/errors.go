package errors

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// AppError é a interface central para todos os erros customizados do SweetShop.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// UnauthorizedError representa falha de autenticação: credencial ausente,
// inválida, expirada, ou referenciando um usuário que não existe mais.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autenticado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError representa credencial válida, mas papel insuficiente.
// Distinto de UnauthorizedError: aqui sabemos quem é, mas ele não pode.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewForbiddenError cria um novo erro de autorização (papel insuficiente).
func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito na regra de negócio (e.g., OCC, recurso duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC e nomes duplicados).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// InsufficientStockError representa uma compra maior que o estoque disponível.
// Responde 400 como os demais erros de requisição, mas com categoria própria
// para que o cliente possa distinguir sem inspecionar a mensagem.
type InsufficientStockError struct {
	Msg string
}

func (e *InsufficientStockError) Error() string    { return fmt.Sprintf("Estoque insuficiente: %s", e.Msg) }
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *InsufficientStockError) Unwrap() error    { return nil }

// NewInsufficientStockError cria um novo erro de estoque insuficiente.
func NewInsufficientStockError(msg string) AppError {
	return &InsufficientStockError{Msg: msg}
}

// UnavailableError representa a indisponibilidade transitória da camada de
// persistência: banco inacessível, ou esgotamento das tentativas de OCC sob
// contenção. O cliente pode repetir a requisição.
type UnavailableError struct {
	Msg string
	Err error
}

func (e *UnavailableError) Error() string    { return fmt.Sprintf("Serviço indisponível: %s", e.Msg) }
func (e *UnavailableError) Category() string { return "STORE_UNAVAILABLE" }
func (e *UnavailableError) HTTPStatus() int  { return http.StatusServiceUnavailable } // 503
func (e *UnavailableError) Unwrap() error    { return e.Err }

// NewUnavailableError cria um novo erro de indisponibilidade transitória.
func NewUnavailableError(msg string, err error) AppError {
	return &UnavailableError{Msg: msg, Err: err}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// isConnectionError distingue a indisponibilidade do banco (timeout da
// requisição, conexão quebrada, classe 08 do PostgreSQL) de uma falha do
// comando em si.
func isConnectionError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		// Classe 08: Connection Exception.
		return strings.HasPrefix(string(pqErr.Code), "08")
	}
	return false
}

// NewDBError classifica uma falha de persistência. Banco inacessível vira
// UnavailableError (503, o cliente pode repetir); qualquer outra falha é um
// InternalError (500).
func NewDBError(msg string, err error) AppError {
	if isConnectionError(err) {
		return NewUnavailableError(fmt.Sprintf("%s: o banco de dados está inacessível.", msg), err)
	}
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, NotFoundError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
