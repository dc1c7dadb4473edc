package stockservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
	"sweetshop/internal/service/stockservice"
)

// MockStockRepository é uma implementação mock da interface StockRepository
type MockStockRepository struct {
	mock.Mock
}

func (m *MockStockRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Sweet, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Sweet), args.Error(1)
}

func (m *MockStockRepository) AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (domain.Sweet, error) {
	args := m.Called(ctx, id, delta, expectedVersion)
	return args.Get(0).(domain.Sweet), args.Error(1)
}

// TestPurchase_Success testa uma compra bem-sucedida dentro do estoque disponível.
func TestPurchase_Success(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	current := domain.Sweet{ID: sweetID, Name: "Trufa de Maracujá", Quantity: 10, Version: 1}
	updated := current
	updated.Quantity = 2
	updated.Version = 2

	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(current, nil)
	mockRepo.On("AdjustQuantity", mock.Anything, sweetID, -8, 1).Return(updated, nil)

	result, err := svc.Purchase(context.Background(), sweetID, 8)

	assert.NoError(t, err)
	assert.Equal(t, 8, result.PurchasedQuantity)
	assert.Equal(t, 2, result.RemainingQuantity)
	mockRepo.AssertExpectations(t)
}

// TestPurchase_Fail_InsufficientStock testa uma compra maior que o estoque.
// O estoque não pode ser tocado: AdjustQuantity não deve ser chamado.
func TestPurchase_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	current := domain.Sweet{ID: sweetID, Name: "Pirulito de Morango", Quantity: 2, Version: 1}

	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(current, nil)

	_, err := svc.Purchase(context.Background(), sweetID, 3)

	assert.Error(t, err)
	assert.IsType(t, &apperror.InsufficientStockError{}, err)
	mockRepo.AssertNotCalled(t, "AdjustQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

// TestPurchase_Fail_InvalidQuantity testa quantidades não positivas.
func TestPurchase_Fail_InvalidQuantity(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()

	for _, quantity := range []int{0, -5} {
		_, err := svc.Purchase(context.Background(), sweetID, quantity)

		assert.Error(t, err)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
	mockRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
}

// TestPurchase_Fail_InvalidID testa um ID que não é UUID.
func TestPurchase_Fail_InvalidID(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	_, err := svc.Purchase(context.Background(), "nao-e-uuid", 1)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

// TestPurchase_Fail_NotFound testa a compra de um doce inexistente.
func TestPurchase_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).
		Return(domain.Sweet{}, apperror.NewNotFoundError("Doce não existe."))

	_, err := svc.Purchase(context.Background(), sweetID, 1)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestPurchase_RetryOnConflict testa que um conflito de OCC é retentado de
// forma invisível ao chamador.
func TestPurchase_RetryOnConflict(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	first := domain.Sweet{ID: sweetID, Quantity: 10, Version: 1}
	second := domain.Sweet{ID: sweetID, Quantity: 7, Version: 2}
	final := domain.Sweet{ID: sweetID, Quantity: 4, Version: 3}

	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(first, nil).Once()
	mockRepo.On("AdjustQuantity", mock.Anything, sweetID, -3, 1).
		Return(domain.Sweet{}, apperror.NewConflictError("Versão desatualizada.")).Once()
	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(second, nil).Once()
	mockRepo.On("AdjustQuantity", mock.Anything, sweetID, -3, 2).Return(final, nil).Once()

	result, err := svc.Purchase(context.Background(), sweetID, 3)

	assert.NoError(t, err)
	assert.Equal(t, 4, result.RemainingQuantity)
	mockRepo.AssertExpectations(t)
}

// TestPurchase_Fail_RetriesExhausted testa que o esgotamento das tentativas
// de OCC vira um erro transitório (503), nunca um conflito cru.
func TestPurchase_Fail_RetriesExhausted(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	current := domain.Sweet{ID: sweetID, Quantity: 10, Version: 1}

	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(current, nil)
	mockRepo.On("AdjustQuantity", mock.Anything, sweetID, -1, 1).
		Return(domain.Sweet{}, apperror.NewConflictError("Versão desatualizada."))

	_, err := svc.Purchase(context.Background(), sweetID, 1)

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnavailableError{}, err)
	mockRepo.AssertNumberOfCalls(t, "AdjustQuantity", 3)
}

// TestPurchase_Fail_InternalError testa um erro genérico do repositório.
func TestPurchase_Fail_InternalError(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).
		Return(domain.Sweet{}, errors.New("falha de conexão com o DB"))

	_, err := svc.Purchase(context.Background(), sweetID, 1)

	assert.Error(t, err)
	assert.IsType(t, &apperror.InternalError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestRestock_Success testa uma reposição bem-sucedida.
func TestRestock_Success(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()
	current := domain.Sweet{ID: sweetID, Quantity: 2, Version: 5}
	updated := domain.Sweet{ID: sweetID, Quantity: 7, Version: 6}

	mockRepo.On("FindByIDForUpdate", mock.Anything, sweetID).Return(current, nil)
	mockRepo.On("AdjustQuantity", mock.Anything, sweetID, 5, 5).Return(updated, nil)

	result, err := svc.Restock(context.Background(), sweetID, 5)

	assert.NoError(t, err)
	assert.Equal(t, 5, result.RestockedQuantity)
	assert.Equal(t, 7, result.NewQuantity)
	mockRepo.AssertExpectations(t)
}

// TestRestock_Fail_InvalidQuantity testa quantidades não positivas na reposição.
func TestRestock_Fail_InvalidQuantity(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockLogger := logger.NewLogger("error")

	svc := stockservice.NewService(mockRepo, 3, mockLogger)

	sweetID := uuid.New().String()

	for _, quantity := range []int{0, -1} {
		_, err := svc.Restock(context.Background(), sweetID, quantity)

		assert.Error(t, err)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
	mockRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
}

// staleCacheRepository simula um repositório cuja leitura cacheada (FindByID)
// ficou para trás do estado real da linha: o snapshot diz estoque zero, mas
// o banco tem estoque. O Ledger não pode consultar o snapshot.
type staleCacheRepository struct {
	cached domain.Sweet
	fresh  domain.Sweet
}

func (r *staleCacheRepository) FindByID(ctx context.Context, id string) (domain.Sweet, error) {
	return r.cached, nil
}

func (r *staleCacheRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Sweet, error) {
	return r.fresh, nil
}

func (r *staleCacheRepository) AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (domain.Sweet, error) {
	if r.fresh.Version != expectedVersion {
		return domain.Sweet{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	r.fresh.Quantity += delta
	r.fresh.Version++
	return r.fresh, nil
}

// TestPurchase_Success_WithStaleCachedSnapshot testa que uma compra dentro do
// estoque real sempre sucede, mesmo quando um snapshot de cache da mesma linha
// diz que o estoque é zero. A decisão de compra é tomada sobre a leitura
// fresca do banco, e a escrita é condicionada à versão dessa leitura.
func TestPurchase_Success_WithStaleCachedSnapshot(t *testing.T) {
	sweetID := uuid.New().String()
	repo := &staleCacheRepository{
		cached: domain.Sweet{ID: sweetID, Quantity: 0, Version: 1},
		fresh:  domain.Sweet{ID: sweetID, Quantity: 5, Version: 2},
	}

	svc := stockservice.NewService(repo, 3, logger.NewLogger("error"))

	result, err := svc.Purchase(context.Background(), sweetID, 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PurchasedQuantity)
	assert.Equal(t, 4, result.RemainingQuantity)
	assert.Equal(t, 4, repo.fresh.Quantity)
}

// casRepository é um repositório em memória com a mesma semântica de OCC do
// repositório real: a escrita só acontece se a versão ainda for a lida.
// Usado para exercitar o Ledger sob concorrência real.
type casRepository struct {
	mu    sync.Mutex
	sweet domain.Sweet
}

func (r *casRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweet, nil
}

func (r *casRepository) AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweet.Version != expectedVersion {
		return domain.Sweet{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	r.sweet.Quantity += delta
	r.sweet.Version++
	return r.sweet, nil
}

// TestPurchase_ConcurrentNeverOversells testa a propriedade central do Ledger:
// N compras concorrentes com demanda combinada maior que o estoque resultam
// em exatamente o suficiente de sucessos para zerar o estoque. Nunca negativo,
// nunca vendido em dobro.
func TestPurchase_ConcurrentNeverOversells(t *testing.T) {
	const initialStock = 10
	const buyers = 25

	sweetID := uuid.New().String()
	repo := &casRepository{
		sweet: domain.Sweet{ID: sweetID, Quantity: initialStock, Version: 1},
	}
	// Retentativas generosas: sob contenção o conflito é esperado, e o teste
	// mede o resultado final, não a sorte de cada goroutine.
	svc := stockservice.NewService(repo, 100, logger.NewLogger("error"))

	var wg sync.WaitGroup
	results := make([]error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), sweetID, 1)
			results[slot] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.IsType(t, &apperror.InsufficientStockError{}, err)
	}

	assert.Equal(t, initialStock, successes)
	assert.Equal(t, 0, repo.sweet.Quantity)
}
