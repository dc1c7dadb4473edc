package sweetservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
)

// Limites de paginação do catálogo.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Service é a estrutura que implementa a lógica de negócio do catálogo.
type Service struct {
	repo   domain.SweetRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço do Catálogo.
func NewService(repo domain.SweetRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// validateSweet aplica as regras de domínio ANTES de qualquer mutação no
// banco: a camada de persistência não é a guardiã silenciosa dos invariantes.
func validateSweet(sweet domain.Sweet) error {
	if strings.TrimSpace(sweet.Name) == "" {
		return apperror.NewValidationError("O nome do doce não pode ser vazio.")
	}
	if !sweet.Category.IsValid() {
		return apperror.NewValidationError(fmt.Sprintf("A categoria '%s' não é válida.", sweet.Category))
	}
	if sweet.Price < 0 {
		return apperror.NewValidationError("O preço do doce não pode ser negativo.")
	}
	if sweet.Quantity < 0 {
		return apperror.NewValidationError("A quantidade do doce não pode ser negativa.")
	}
	if len(sweet.Description) > domain.DescriptionMaxLength {
		return apperror.NewValidationError(fmt.Sprintf("A descrição não pode exceder %d caracteres.", domain.DescriptionMaxLength))
	}
	return nil
}

// CreateSweet cria um novo doce no catálogo após validações de negócio.
// Nomes são únicos: criar com um nome existente falha com Conflito (409).
func (s *Service) CreateSweet(ctx context.Context, sweet domain.Sweet) (domain.Sweet, error) {
	s.logger.Debug("Iniciando criação de doce no serviço.", map[string]interface{}{"name": sweet.Name})

	// Um "id" vindo do payload é descartado: a atribuição é do servidor.
	sweet.ID = ""
	sweet.Name = strings.TrimSpace(sweet.Name)
	if err := validateSweet(sweet); err != nil {
		s.logger.Warn("Falha na validação do doce.", map[string]interface{}{"name": sweet.Name, "error": err.Error()})
		return domain.Sweet{}, err
	}

	// Rejeição de duplicado por nome exato. O índice único no banco cobre a
	// corrida entre a checagem e o INSERT.
	if _, err := s.repo.FindByName(ctx, sweet.Name); err == nil {
		return domain.Sweet{}, apperror.NewConflictError(fmt.Sprintf("Já existe um doce com o nome '%s'.", sweet.Name))
	} else {
		var notFound *apperror.NotFoundError
		if !errors.As(err, &notFound) {
			return domain.Sweet{}, apperror.NewInternalError("Falha interna ao verificar nome duplicado.", err)
		}
	}

	createdSweet, err := s.repo.Save(ctx, sweet)
	if err != nil {
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return domain.Sweet{}, err
		}
		s.logger.Error("Falha ao criar doce no repositório.", err)
		return domain.Sweet{}, apperror.NewInternalError("Falha interna ao criar doce.", err)
	}

	s.logger.Info("Doce criado com sucesso.", map[string]interface{}{"sweet_id": createdSweet.ID, "name": createdSweet.Name})
	return createdSweet, nil
}

// GetSweetByID busca um doce pelo ID após validação de formato.
func (s *Service) GetSweetByID(ctx context.Context, id string) (domain.Sweet, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Sweet{}, apperror.NewValidationError("O ID do doce deve ser um UUID válido.")
	}

	sweet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não foi encontrado.", id))
		}
		return domain.Sweet{}, err
	}

	return sweet, nil
}

// GetSweets lista uma página do catálogo com os metadados de paginação.
// Page e Limit inválidos são normalizados (page >= 1, 1 <= limit <= 100).
func (s *Service) GetSweets(ctx context.Context, page, limit int) ([]domain.Sweet, domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	sweets, err := s.repo.FindAll(ctx, domain.SweetFilter{Page: page, Limit: limit})
	if err != nil {
		s.logger.Error("Falha ao listar doces no repositório.", err)
		return nil, domain.Pagination{}, apperror.NewInternalError("Falha interna ao listar doces.", err)
	}

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		s.logger.Error("Falha ao contar doces no repositório.", err)
		return nil, domain.Pagination{}, apperror.NewInternalError("Falha interna ao contar doces.", err)
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	pagination := domain.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}

	return sweets, pagination, nil
}

// UpdateSweet aplica uma atualização parcial, validando apenas os campos presentes.
func (s *Service) UpdateSweet(ctx context.Context, id string, update domain.SweetUpdate) (domain.Sweet, error) {
	s.logger.Debug("Iniciando atualização de doce no serviço.", map[string]interface{}{"sweet_id": id})

	if _, err := uuid.Parse(id); err != nil {
		return domain.Sweet{}, apperror.NewValidationError("O ID do doce deve ser um UUID válido.")
	}

	if update.Name == nil && update.Category == nil && update.Price == nil &&
		update.Quantity == nil && update.Description == nil && update.ImageURL == nil {
		return domain.Sweet{}, apperror.NewValidationError("Nenhum campo para atualizar foi informado.")
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return domain.Sweet{}, apperror.NewValidationError("O nome do doce não pode ser vazio.")
		}
		update.Name = &trimmed
	}
	if update.Category != nil && !update.Category.IsValid() {
		return domain.Sweet{}, apperror.NewValidationError(fmt.Sprintf("A categoria '%s' não é válida.", *update.Category))
	}
	if update.Price != nil && *update.Price < 0 {
		return domain.Sweet{}, apperror.NewValidationError("O preço do doce não pode ser negativo.")
	}
	if update.Quantity != nil && *update.Quantity < 0 {
		return domain.Sweet{}, apperror.NewValidationError("A quantidade do doce não pode ser negativa.")
	}
	if update.Description != nil && len(*update.Description) > domain.DescriptionMaxLength {
		return domain.Sweet{}, apperror.NewValidationError(fmt.Sprintf("A descrição não pode exceder %d caracteres.", domain.DescriptionMaxLength))
	}

	updatedSweet, err := s.repo.Update(ctx, id, update)
	if err != nil {
		var notFound *apperror.NotFoundError
		var conflictErr *apperror.ConflictError
		if errors.As(err, &notFound) || errors.As(err, &conflictErr) {
			return domain.Sweet{}, err
		}
		s.logger.Error("Falha ao atualizar doce no repositório.", err)
		return domain.Sweet{}, apperror.NewInternalError("Falha interna ao atualizar doce.", err)
	}

	s.logger.Info("Doce atualizado com sucesso.", map[string]interface{}{"sweet_id": id})
	return updatedSweet, nil
}

// DeleteSweet remove definitivamente um doce do catálogo.
func (s *Service) DeleteSweet(ctx context.Context, id string) (domain.Sweet, error) {
	s.logger.Debug("Iniciando remoção de doce no serviço.", map[string]interface{}{"sweet_id": id})

	if _, err := uuid.Parse(id); err != nil {
		return domain.Sweet{}, apperror.NewValidationError("O ID do doce deve ser um UUID válido.")
	}

	deletedSweet, err := s.repo.Delete(ctx, id)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return domain.Sweet{}, err
		}
		s.logger.Error("Falha ao remover doce no repositório.", err)
		return domain.Sweet{}, apperror.NewInternalError("Falha interna ao remover doce.", err)
	}

	s.logger.Info("Doce removido com sucesso.", map[string]interface{}{"sweet_id": id, "name": deletedSweet.Name})
	return deletedSweet, nil
}

// SearchSweets busca doces por filtros conjuntivos (nome/descrição,
// categoria, faixa de preço inclusiva). Filtros ausentes não restringem.
func (s *Service) SearchSweets(ctx context.Context, search domain.SweetSearch) ([]domain.Sweet, error) {
	if search.Category != "" && !search.Category.IsValid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("A categoria '%s' não é válida.", search.Category))
	}
	if search.MinPrice != nil && *search.MinPrice < 0 {
		return nil, apperror.NewValidationError("O preço mínimo não pode ser negativo.")
	}
	if search.MaxPrice != nil && *search.MaxPrice < 0 {
		return nil, apperror.NewValidationError("O preço máximo não pode ser negativo.")
	}
	if search.MinPrice != nil && search.MaxPrice != nil && *search.MinPrice > *search.MaxPrice {
		return nil, apperror.NewValidationError("O preço mínimo não pode ser maior que o preço máximo.")
	}

	sweets, err := s.repo.Search(ctx, search)
	if err != nil {
		s.logger.Error("Falha ao buscar doces no repositório.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar doces.", err)
	}

	return sweets, nil
}
