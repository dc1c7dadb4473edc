package domain

import (
	"context"
	"time"
)

// Sweet representa o item principal do catálogo da loja (a Entidade).
// Contém uma coluna 'version' para controle de concorrência otimista (OCC)
// nas operações de compra e reposição de estoque.
type Sweet struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    SweetCategory `json:"category"`
	Price       float64       `json:"price"`
	Quantity    int           `json:"quantity"`
	Description string        `json:"description,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	Version     int           `json:"version"` // Para Controle de Concorrência Otimista (OCC)
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SweetCategory é um tipo string para representar a categoria fechada do doce.
type SweetCategory string

// Constantes para as categorias permitidas (enumeração fechada do catálogo).
const (
	CategoryChocolate   SweetCategory = "chocolate"
	CategoryCandy       SweetCategory = "candy"
	CategoryGummy       SweetCategory = "gummy"
	CategoryHardCandy   SweetCategory = "hard candy"
	CategoryLollipop    SweetCategory = "lollipop"
	CategoryToffee      SweetCategory = "toffee"
	CategoryMarshmallow SweetCategory = "marshmallow"
	CategoryOther       SweetCategory = "other"
)

// Categories lista todas as categorias válidas, na ordem da enumeração.
var Categories = []SweetCategory{
	CategoryChocolate,
	CategoryCandy,
	CategoryGummy,
	CategoryHardCandy,
	CategoryLollipop,
	CategoryToffee,
	CategoryMarshmallow,
	CategoryOther,
}

// IsValid verifica se a categoria pertence à enumeração fechada.
func (c SweetCategory) IsValid() bool {
	for _, valid := range Categories {
		if c == valid {
			return true
		}
	}
	return false
}

// DescriptionMaxLength é o tamanho máximo permitido para a descrição de um doce.
const DescriptionMaxLength = 500

// SweetFilter define os parâmetros de paginação da listagem do catálogo.
type SweetFilter struct {
	Page  int
	Limit int
}

// SweetUpdate define uma atualização parcial de campos do doce.
// Campos nil não são alterados.
type SweetUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Category    *SweetCategory `json:"category,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Quantity    *int           `json:"quantity,omitempty"`
	Description *string        `json:"description,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
}

// SweetSearch define os filtros de busca textual do catálogo.
// Todos os filtros presentes são conjuntivos (AND); filtros ausentes
// não impõem restrição. Os limites de preço são inclusivos.
type SweetSearch struct {
	Name     string
	Category SweetCategory
	MinPrice *float64
	MaxPrice *float64
}

// PurchaseResult é o resultado de uma compra bem-sucedida.
type PurchaseResult struct {
	PurchasedQuantity int `json:"purchasedQuantity"`
	RemainingQuantity int `json:"remainingQuantity"`
}

// RestockResult é o resultado de uma reposição de estoque bem-sucedida.
type RestockResult struct {
	RestockedQuantity int `json:"restockedQuantity"`
	NewQuantity       int `json:"newQuantity"`
}

// Pagination é o bloco de metadados retornado junto com a listagem.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// --- Interfaces de Contrato ---

// SweetRepository é a interface que a camada de Repositório (Data Access) DEVE implementar.
// Ela define o que a camada de Serviço pode pedir para a camada de Persistência fazer.
type SweetRepository interface {
	Save(ctx context.Context, sweet Sweet) (Sweet, error)
	FindByID(ctx context.Context, id string) (Sweet, error)

	// FindByIDForUpdate lê o registro direto do banco, ignorando o cache.
	// O Ledger de Estoque decide compras sobre esta leitura: um snapshot
	// de cache pode estar atrás do estado real da linha.
	FindByIDForUpdate(ctx context.Context, id string) (Sweet, error)
	FindByName(ctx context.Context, name string) (Sweet, error)
	FindAll(ctx context.Context, filter SweetFilter) ([]Sweet, error)
	CountAll(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, update SweetUpdate) (Sweet, error)
	Delete(ctx context.Context, id string) (Sweet, error)
	Search(ctx context.Context, search SweetSearch) ([]Sweet, error)

	// AdjustQuantity aplica um delta à quantidade, condicionado à versão lida.
	// Se a versão não corresponder mais (outra operação venceu a corrida),
	// retorna um ConflictError para que o chamador releia e tente de novo.
	AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (Sweet, error)
}
