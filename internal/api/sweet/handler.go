package sweet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
	"sweetshop/internal/pkg/middleware"
)

// SweetService define o contrato que o Handler espera da camada de Serviço do Catálogo.
type SweetService interface {
	CreateSweet(ctx context.Context, sweet domain.Sweet) (domain.Sweet, error)
	GetSweetByID(ctx context.Context, id string) (domain.Sweet, error)
	GetSweets(ctx context.Context, page, limit int) ([]domain.Sweet, domain.Pagination, error)
	UpdateSweet(ctx context.Context, id string, update domain.SweetUpdate) (domain.Sweet, error)
	DeleteSweet(ctx context.Context, id string) (domain.Sweet, error)
	SearchSweets(ctx context.Context, search domain.SweetSearch) ([]domain.Sweet, error)
}

// StockService define o contrato que o Handler espera do Ledger de Estoque.
type StockService interface {
	Purchase(ctx context.Context, sweetID string, quantity int) (domain.PurchaseResult, error)
	Restock(ctx context.Context, sweetID string, quantity int) (domain.RestockResult, error)
}

// Handler agrupa todos os métodos de Handler do catálogo de doces.
type Handler struct {
	Service SweetService
	Stock   StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Serviços e o Logger.
func NewHandler(svc SweetService, stock StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Stock:   stock,
		Logger:  log,
	}
}

// --- Funções Auxiliares ---

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)

		h.Logger.Info("Requisição concluída com sucesso", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": successStatus,
		})

		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		// Erros de cliente (4xx) são logged como debug
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// sweetIDFromPath extrai o ID do doce do segmento da URL
// (/v1/sweets/{id} ou /v1/sweets/{id}/purchase|restock).
func sweetIDFromPath(path string) (string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[2] == "" {
		return "", apperror.NewValidationError("Formato de URL inválido ou ID ausente.")
	}
	return segments[2], nil
}

// quantityRequest é o payload esperado para compra e reposição.
// Usamos ponteiro para distinguir campo ausente de zero.
type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// decodeQuantity decodifica e valida o payload de quantidade.
func decodeQuantity(r *http.Request) (int, error) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, apperror.NewValidationError("Payload inválido. A quantidade deve ser um número inteiro.")
	}
	if req.Quantity == nil {
		return 0, apperror.NewValidationError("A quantidade é obrigatória.")
	}
	return *req.Quantity, nil
}

// --- Handlers do Catálogo ---

// CreateSweetHandler lida com a requisição POST /v1/sweets.
// @Summary Cria um novo doce (somente admin)
// @Tags sweets
// @Accept json
// @Produce json
// @Param sweet body domain.Sweet true "Dados do doce"
// @Success 201 {object} domain.Sweet "Doce criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Failure 409 {object} domain.ErrorResponse "Nome de doce duplicado"
// @Security BearerAuth
// @Router /sweets [post]
func (h *Handler) CreateSweetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
		h.Logger.Info("Criação de doce solicitada por", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
	}

	var sweet domain.Sweet
	if err := json.NewDecoder(r.Body).Decode(&sweet); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusCreated)
		return
	}

	newSweet, err := h.Service.CreateSweet(ctx, sweet)
	h.handleServiceResponse(w, r, newSweet, err, http.StatusCreated)
}

// ListSweetsHandler lida com a requisição GET /v1/sweets.
// @Summary Lista doces com paginação
// @Tags sweets
// @Produce json
// @Param page query int false "Página (padrão 1)"
// @Param limit query int false "Itens por página (padrão 10, máximo 100)"
// @Success 200 {object} map[string]interface{} "sweets + pagination"
// @Router /sweets [get]
func (h *Handler) ListSweetsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Valores inválidos ou ausentes caem nos padrões do serviço.
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sweets, pagination, err := h.Service.GetSweets(ctx, page, limit)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	response := map[string]interface{}{
		"sweets":     sweets,
		"pagination": pagination,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}

// SearchSweetsHandler lida com a requisição GET /v1/sweets/search.
// @Summary Busca doces por nome/descrição, categoria e faixa de preço
// @Tags sweets
// @Produce json
// @Param name query string false "Substring de nome ou descrição (case-insensitive)"
// @Param category query string false "Categoria exata"
// @Param min_price query number false "Preço mínimo (inclusivo)"
// @Param max_price query number false "Preço máximo (inclusivo)"
// @Success 200 {object} map[string]interface{} "sweets"
// @Failure 400 {object} domain.ErrorResponse "Filtros inválidos"
// @Router /sweets/search [get]
func (h *Handler) SearchSweetsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	search := domain.SweetSearch{
		Name:     query.Get("name"),
		Category: domain.SweetCategory(query.Get("category")),
	}

	if raw := query.Get("min_price"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O preço mínimo deve ser numérico."), http.StatusOK)
			return
		}
		search.MinPrice = &value
	}
	if raw := query.Get("max_price"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O preço máximo deve ser numérico."), http.StatusOK)
			return
		}
		search.MaxPrice = &value
	}

	sweets, err := h.Service.SearchSweets(ctx, search)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, map[string]interface{}{"sweets": sweets}, nil, http.StatusOK)
}

// GetSweetByIDHandler lida com a requisição GET /v1/sweets/{id}.
// @Summary Busca um doce pelo ID
// @Tags sweets
// @Produce json
// @Param id path string true "ID do doce"
// @Success 200 {object} domain.Sweet
// @Failure 404 {object} domain.ErrorResponse "Doce não encontrado"
// @Router /sweets/{id} [get]
func (h *Handler) GetSweetByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sweetID, err := sweetIDFromPath(r.URL.Path)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	sweet, err := h.Service.GetSweetByID(ctx, sweetID)
	h.handleServiceResponse(w, r, sweet, err, http.StatusOK)
}

// UpdateSweetHandler lida com a requisição PUT /v1/sweets/{id}.
// @Summary Atualiza campos de um doce (somente admin)
// @Tags sweets
// @Accept json
// @Produce json
// @Param id path string true "ID do doce"
// @Param update body domain.SweetUpdate true "Campos a atualizar (parcial)"
// @Success 200 {object} domain.Sweet
// @Failure 400 {object} domain.ErrorResponse "Payload ou campos inválidos"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Failure 404 {object} domain.ErrorResponse "Doce não encontrado"
// @Security BearerAuth
// @Router /sweets/{id} [put]
func (h *Handler) UpdateSweetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sweetID, err := sweetIDFromPath(r.URL.Path)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var update domain.SweetUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	updatedSweet, err := h.Service.UpdateSweet(ctx, sweetID, update)
	h.handleServiceResponse(w, r, updatedSweet, err, http.StatusOK)
}

// DeleteSweetHandler lida com a requisição DELETE /v1/sweets/{id}.
// @Summary Remove um doce (somente admin)
// @Tags sweets
// @Produce json
// @Param id path string true "ID do doce"
// @Success 200 {object} domain.Sweet "Doce removido"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Failure 404 {object} domain.ErrorResponse "Doce não encontrado"
// @Security BearerAuth
// @Router /sweets/{id} [delete]
func (h *Handler) DeleteSweetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sweetID, err := sweetIDFromPath(r.URL.Path)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	deletedSweet, err := h.Service.DeleteSweet(ctx, sweetID)
	h.handleServiceResponse(w, r, deletedSweet, err, http.StatusOK)
}

// --- Handlers do Ledger de Estoque ---

// PurchaseSweetHandler lida com a requisição POST /v1/sweets/{id}/purchase.
// @Summary Compra uma quantidade de um doce (qualquer usuário autenticado)
// @Tags sweets
// @Accept json
// @Produce json
// @Param id path string true "ID do doce"
// @Param purchase body object true "quantity"
// @Success 200 {object} domain.PurchaseResult
// @Failure 400 {object} domain.ErrorResponse "Quantidade inválida ou estoque insuficiente"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 404 {object} domain.ErrorResponse "Doce não encontrado"
// @Security BearerAuth
// @Router /sweets/{id}/purchase [post]
func (h *Handler) PurchaseSweetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sweetID, err := sweetIDFromPath(r.URL.Path)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	quantity, err := decodeQuantity(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Stock.Purchase(ctx, sweetID, quantity)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// RestockSweetHandler lida com a requisição POST /v1/sweets/{id}/restock.
// @Summary Repõe o estoque de um doce (somente admin)
// @Tags sweets
// @Accept json
// @Produce json
// @Param id path string true "ID do doce"
// @Param restock body object true "quantity"
// @Success 200 {object} domain.RestockResult
// @Failure 400 {object} domain.ErrorResponse "Quantidade inválida"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Failure 404 {object} domain.ErrorResponse "Doce não encontrado"
// @Security BearerAuth
// @Router /sweets/{id}/restock [post]
func (h *Handler) RestockSweetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sweetID, err := sweetIDFromPath(r.URL.Path)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	quantity, err := decodeQuantity(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Stock.Restock(ctx, sweetID, quantity)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}
