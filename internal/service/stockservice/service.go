package stockservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
)

// DefaultMaxRetries é o número padrão de tentativas de escrita sob OCC.
const DefaultMaxRetries = 3

// StockRepository define o contrato que o Ledger de Estoque espera da camada
// de Persistência: leitura do registro atual direto do banco (nunca de um
// cache entre requisições) e escrita condicionada à versão.
type StockRepository interface {
	FindByIDForUpdate(ctx context.Context, id string) (domain.Sweet, error)
	AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (domain.Sweet, error)
}

// Service é o Ledger de Estoque: a única porta de entrada para decrementos
// (compra) e incrementos (reposição) de quantidade. A sequência
// ler-verificar-escrever é linearizável por item graças ao OCC do repositório.
type Service struct {
	repo       StockRepository
	maxRetries int
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Ledger de Estoque.
// maxRetries menor que 1 assume o padrão.
func NewService(repo StockRepository, maxRetries int, logger logger.Logger) *Service {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{repo: repo, maxRetries: maxRetries, logger: logger}
}

// Purchase decrementa o estoque de um doce em favor do comprador.
// Falha com ValidationError (quantidade não positiva), NotFoundError (doce
// inexistente) ou InsufficientStockError (estoque menor que o pedido).
// Duas compras concorrentes nunca vendem além do estoque disponível: a
// escrita é condicionada à versão lida, e conflitos são retentados de forma
// invisível ao chamador.
func (s *Service) Purchase(ctx context.Context, sweetID string, quantity int) (domain.PurchaseResult, error) {
	s.logger.Debug("Iniciando compra no Ledger de Estoque.", map[string]interface{}{
		"sweet_id": sweetID,
		"quantity": quantity,
	})

	if _, err := uuid.Parse(sweetID); err != nil {
		return domain.PurchaseResult{}, apperror.NewValidationError("O ID do doce deve ser um UUID válido.")
	}
	if quantity <= 0 {
		return domain.PurchaseResult{}, apperror.NewValidationError("A quantidade de compra deve ser um inteiro positivo.")
	}

	sweet, err := s.adjust(ctx, sweetID, -quantity, func(current domain.Sweet) error {
		if current.Quantity < quantity {
			return apperror.NewInsufficientStockError(fmt.Sprintf(
				"Estoque disponível (%d) é menor que o solicitado (%d).", current.Quantity, quantity))
		}
		return nil
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	s.logger.Info("Compra concluída com sucesso.", map[string]interface{}{
		"sweet_id":           sweetID,
		"purchased_quantity": quantity,
		"remaining_quantity": sweet.Quantity,
	})
	return domain.PurchaseResult{
		PurchasedQuantity: quantity,
		RemainingQuantity: sweet.Quantity,
	}, nil
}

// Restock incrementa o estoque de um doce. A autorização (somente admin) é
// responsabilidade da camada de Access Policy; aqui a chamada já chega autorizada.
func (s *Service) Restock(ctx context.Context, sweetID string, quantity int) (domain.RestockResult, error) {
	s.logger.Debug("Iniciando reposição no Ledger de Estoque.", map[string]interface{}{
		"sweet_id": sweetID,
		"quantity": quantity,
	})

	if _, err := uuid.Parse(sweetID); err != nil {
		return domain.RestockResult{}, apperror.NewValidationError("O ID do doce deve ser um UUID válido.")
	}
	if quantity <= 0 {
		return domain.RestockResult{}, apperror.NewValidationError("A quantidade de reposição deve ser um inteiro positivo.")
	}

	sweet, err := s.adjust(ctx, sweetID, quantity, func(domain.Sweet) error { return nil })
	if err != nil {
		return domain.RestockResult{}, err
	}

	s.logger.Info("Reposição concluída com sucesso.", map[string]interface{}{
		"sweet_id":           sweetID,
		"restocked_quantity": quantity,
		"new_quantity":       sweet.Quantity,
	})
	return domain.RestockResult{
		RestockedQuantity: quantity,
		NewQuantity:       sweet.Quantity,
	}, nil
}

// adjust executa o ciclo ler-verificar-escrever com retentativa limitada.
// A cada iteração: lê o doce (e a versão) direto do banco, aplica a
// pré-condição de negócio sobre o estado atual e tenta a escrita condicionada
// à versão lida. A leitura nunca passa pelo cache: uma compra dentro do
// estoque real não pode ser rejeitada por um snapshot velho do Redis. Um
// ConflictError do repositório significa corrida perdida: relê e tenta de
// novo. O esgotamento das tentativas vira UnavailableError (503, retryável),
// nunca um conflito cru.
func (s *Service) adjust(ctx context.Context, sweetID string, delta int, precondition func(domain.Sweet) error) (domain.Sweet, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.repo.FindByIDForUpdate(ctx, sweetID)
		if err != nil {
			var notFound *apperror.NotFoundError
			if errors.As(err, &notFound) {
				return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não foi encontrado.", sweetID))
			}
			s.logger.Error("Falha ao ler doce para ajuste de estoque.", err)
			return domain.Sweet{}, apperror.NewInternalError("Falha interna ao ler estoque.", err)
		}

		if err := precondition(current); err != nil {
			return domain.Sweet{}, err
		}

		updated, err := s.repo.AdjustQuantity(ctx, sweetID, delta, current.Version)
		if err == nil {
			return updated, nil
		}

		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			// Outra operação alterou o registro entre a leitura e a escrita.
			s.logger.Warn("Conflito de OCC no ajuste de estoque. Retentando.", map[string]interface{}{
				"sweet_id": sweetID,
				"attempt":  attempt,
			})
			lastErr = err
			continue
		}

		s.logger.Error("Falha ao ajustar estoque no repositório.", err)
		return domain.Sweet{}, apperror.NewInternalError("Falha interna ao ajustar estoque.", err)
	}

	s.logger.Error("Tentativas de OCC esgotadas sob contenção.", lastErr)
	return domain.Sweet{}, apperror.NewUnavailableError("O estoque está sob alta contenção. Tente novamente.", lastErr)
}
