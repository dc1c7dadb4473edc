package sweetrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/cache"
	"sweetshop/internal/pkg/logger"
)

// Define a chave de cache para doces.
const sweetCacheKey = "sweet:%s"

// uniqueViolation é o código do PostgreSQL para violação de chave única.
const uniqueViolation = "23505"

// sweetColumns é a lista de colunas na ordem usada por scanSweet.
const sweetColumns = "id, name, category, price, quantity, description, image_url, version, created_at, updated_at"

// SweetRepository implementa a interface domain.SweetRepository.
// Ela contém as conexões necessárias para acessar dados (PostgreSQL + Redis).
type SweetRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewSweetRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewSweetRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *SweetRepository {
	return &SweetRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// rowScanner cobre *sql.Row e *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSweet mapeia uma linha do DB para a struct domain.Sweet.
func scanSweet(row rowScanner) (domain.Sweet, error) {
	var s domain.Sweet
	var description, imageURL sql.NullString
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Category,
		&s.Price,
		&s.Quantity,
		&description,
		&imageURL,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.Sweet{}, err
	}
	s.Description = description.String
	s.ImageURL = imageURL.String
	return s, nil
}

// invalidate remove a entrada de cache de um doce após qualquer mutação,
// para que leituras futuras não sirvam estado antigo.
func (r *SweetRepository) invalidate(ctx context.Context, id string) {
	if err := r.Cache.Delete(ctx, fmt.Sprintf(sweetCacheKey, id)); err != nil {
		r.logger.Warn("Falha ao invalidar cache do doce.", map[string]interface{}{"sweet_id": id, "error": err.Error()})
	}
}

// Save persiste um novo doce no banco de dados.
func (r *SweetRepository) Save(ctx context.Context, sweet domain.Sweet) (domain.Sweet, error) {
	r.logger.Debug("Iniciando Save de doce no repositório.", map[string]interface{}{"name": sweet.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// O ID é sempre atribuído pelo servidor, como no repositório de usuários.
	sweet.ID = uuid.New().String()
	now := time.Now().UTC()
	sweet.CreatedAt = now
	sweet.UpdatedAt = now
	sweet.Version = 1

	query := `
        INSERT INTO sweets (id, name, category, price, quantity, description, image_url, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		sweet.ID,
		sweet.Name,
		sweet.Category,
		sweet.Price,
		sweet.Quantity,
		sweet.Description,
		sweet.ImageURL,
		sweet.Version,
		sweet.CreatedAt,
		sweet.UpdatedAt,
	)

	if err != nil {
		// Violação de unicidade do nome vira um Conflito de Negócio (409).
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			r.logger.Info("Tentativa de criar doce com nome duplicado.", map[string]interface{}{"name": sweet.Name})
			return domain.Sweet{}, apperror.NewConflictError(fmt.Sprintf("Já existe um doce com o nome '%s'.", sweet.Name))
		}
		r.logger.Error("Falha ao inserir doce no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao inserir doce", err)
	}

	r.logger.Info("Doce salvo com sucesso no repositório.", map[string]interface{}{"sweet_id": sweet.ID, "name": sweet.Name})
	return sweet, nil
}

// FindByID busca um doce pelo ID, utilizando a estratégia Cache-Aside.
func (r *SweetRepository) FindByID(ctx context.Context, id string) (domain.Sweet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(sweetCacheKey, id)
	var sweet domain.Sweet

	// 1. Tentar obter do Cache (Redis)
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		// Cache HIT
		if json.Unmarshal([]byte(cachedData), &sweet) == nil {
			return sweet, nil
		}
		// Se a desserialização falhar, segue para o DB
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (e.g., conexão perdida): logamos e continuamos.
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE id = $1`, sweetColumns)

	sweet, err = scanSweet(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar doce no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao buscar doce", err)
	}

	// 3. Estratégia Cache-Aside (WRITE): popula o cache para futuras leituras.
	if sweetJSON, marshalErr := json.Marshal(sweet); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, sweetJSON, r.CacheTTL)
	}

	return sweet, nil
}

// FindByIDForUpdate busca um doce pelo ID direto no banco, sem passar pelo
// cache. O Ledger de Estoque usa esta leitura: a pré-condição de compra é
// avaliada sobre o estado real da linha, nunca sobre um snapshot do Redis
// (que pode sobreviver a uma invalidação falhada até expirar o TTL).
func (r *SweetRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Sweet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE id = $1`, sweetColumns)

	sweet, err := scanSweet(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar doce para ajuste de estoque no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao buscar doce para ajuste de estoque", err)
	}

	return sweet, nil
}

// FindByName busca um doce pelo nome exato (usado na rejeição de duplicados).
func (r *SweetRepository) FindByName(ctx context.Context, name string) (domain.Sweet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE name = $1`, sweetColumns)

	sweet, err := scanSweet(r.DB.QueryRowContext(ctxTimeout, query, name))
	if err == sql.ErrNoRows {
		return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com nome '%s' não encontrado.", name))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar doce por nome no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao buscar doce por nome", err)
	}

	return sweet, nil
}

// FindAll lista uma página do catálogo, ordenada por criação decrescente.
func (r *SweetRepository) FindAll(ctx context.Context, filter domain.SweetFilter) ([]domain.Sweet, error) {
	r.logger.Debug("Iniciando FindAll de doces no repositório.", map[string]interface{}{"page": filter.Page, "limit": filter.Limit})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	offset := (filter.Page - 1) * filter.Limit

	query := fmt.Sprintf(`
        SELECT %s FROM sweets
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`, sweetColumns)

	rows, err := r.DB.QueryContext(ctxTimeout, query, filter.Limit, offset)
	if err != nil {
		r.logger.Error("Falha ao listar doces no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar doces", err)
	}
	defer rows.Close()

	sweets := []domain.Sweet{}
	for rows.Next() {
		sweet, scanErr := scanSweet(rows)
		if scanErr != nil {
			r.logger.Error("Falha ao mapear linha de doce.", scanErr)
			return nil, apperror.NewDBError("Falha ao mapear doce", scanErr)
		}
		sweets = append(sweets, sweet)
	}
	if err = rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer doces", err)
	}

	return sweets, nil
}

// CountAll retorna o total de doces no catálogo (para a paginação).
func (r *SweetRepository) CountAll(ctx context.Context) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var total int
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM sweets`).Scan(&total); err != nil {
		r.logger.Error("Falha ao contar doces no DB.", err)
		return 0, apperror.NewDBError("Falha ao contar doces", err)
	}
	return total, nil
}

// Update aplica uma atualização parcial de campos e retorna o doce atualizado.
// Campos nil no SweetUpdate não são tocados.
func (r *SweetRepository) Update(ctx context.Context, id string, update domain.SweetUpdate) (domain.Sweet, error) {
	r.logger.Debug("Iniciando Update de doce no repositório.", map[string]interface{}{"sweet_id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// Monta o SET dinamicamente, apenas com os campos presentes.
	setClauses := []string{}
	args := []interface{}{}
	arg := 1

	addSet := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if update.Name != nil {
		addSet("name", *update.Name)
	}
	if update.Category != nil {
		addSet("category", *update.Category)
	}
	if update.Price != nil {
		addSet("price", *update.Price)
	}
	if update.Quantity != nil {
		addSet("quantity", *update.Quantity)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.ImageURL != nil {
		addSet("image_url", *update.ImageURL)
	}
	addSet("updated_at", time.Now().UTC())
	setClauses = append(setClauses, "version = version + 1")

	query := fmt.Sprintf(`
        UPDATE sweets SET %s
        WHERE id = $%d
        RETURNING %s`, strings.Join(setClauses, ", "), arg, sweetColumns)
	args = append(args, id)

	sweet, err := scanSweet(r.DB.QueryRowContext(ctxTimeout, query, args...))
	if err == sql.ErrNoRows {
		return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return domain.Sweet{}, apperror.NewConflictError("Já existe um doce com esse nome.")
		}
		r.logger.Error("Falha ao atualizar doce no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao atualizar doce", err)
	}

	r.invalidate(ctxTimeout, id)
	r.logger.Info("Doce atualizado com sucesso.", map[string]interface{}{"sweet_id": id})
	return sweet, nil
}

// Delete remove definitivamente um doce e retorna o registro removido.
// Não há soft-delete: a remoção é final.
func (r *SweetRepository) Delete(ctx context.Context, id string) (domain.Sweet, error) {
	r.logger.Debug("Iniciando Delete de doce no repositório.", map[string]interface{}{"sweet_id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM sweets WHERE id = $1 RETURNING %s`, sweetColumns)

	sweet, err := scanSweet(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Sweet{}, apperror.NewNotFoundError(fmt.Sprintf("Doce com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao remover doce no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao remover doce", err)
	}

	r.invalidate(ctxTimeout, id)
	r.logger.Info("Doce removido com sucesso.", map[string]interface{}{"sweet_id": id, "name": sweet.Name})
	return sweet, nil
}

// Search busca doces por filtros conjuntivos: substring de nome/descrição
// (case-insensitive), categoria exata e faixa de preço inclusiva.
func (r *SweetRepository) Search(ctx context.Context, search domain.SweetSearch) ([]domain.Sweet, error) {
	r.logger.Debug("Iniciando Search de doces no repositório.", map[string]interface{}{
		"name":     search.Name,
		"category": search.Category,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	conditions := []string{}
	args := []interface{}{}
	arg := 1

	if search.Name != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", arg, arg))
		args = append(args, "%"+search.Name+"%")
		arg++
	}
	if search.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", arg))
		args = append(args, search.Category)
		arg++
	}
	if search.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", arg))
		args = append(args, *search.MinPrice)
		arg++
	}
	if search.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", arg))
		args = append(args, *search.MaxPrice)
		arg++
	}

	query := fmt.Sprintf(`SELECT %s FROM sweets`, sweetColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao buscar doces no DB.", err)
		return nil, apperror.NewDBError("Falha ao buscar doces", err)
	}
	defer rows.Close()

	sweets := []domain.Sweet{}
	for rows.Next() {
		sweet, scanErr := scanSweet(rows)
		if scanErr != nil {
			return nil, apperror.NewDBError("Falha ao mapear doce", scanErr)
		}
		sweets = append(sweets, sweet)
	}
	if err = rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer doces", err)
	}

	return sweets, nil
}

// AdjustQuantity aplica um delta à quantidade com Controle de Concorrência
// Otimista (OCC): o UPDATE só acontece se a versão ainda for a que o chamador
// leu. Zero linhas afetadas significa que outra operação venceu a corrida,
// e o chamador deve reler e tentar novamente.
func (r *SweetRepository) AdjustQuantity(ctx context.Context, id string, delta int, expectedVersion int) (domain.Sweet, error) {
	r.logger.Debug("Iniciando AdjustQuantity no repositório.", map[string]interface{}{
		"sweet_id":         id,
		"delta":            delta,
		"expected_version": expectedVersion,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`
        UPDATE sweets
        SET quantity = quantity + $1, version = version + 1, updated_at = $2
        WHERE id = $3 AND version = $4
        RETURNING %s`, sweetColumns)

	sweet, err := scanSweet(r.DB.QueryRowContext(ctxTimeout, query, delta, time.Now().UTC(), id, expectedVersion))
	if err == sql.ErrNoRows {
		// Versão desatualizada (ou doce removido entre a leitura e a escrita).
		// O serviço relê o registro: um doce removido vira NotFound lá.
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do registro desatualizada.", map[string]interface{}{
			"sweet_id":         id,
			"expected_version": expectedVersion,
		})
		return domain.Sweet{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao ajustar quantidade no DB.", err)
		return domain.Sweet{}, apperror.NewDBError("Falha ao ajustar quantidade", err)
	}

	r.invalidate(ctxTimeout, id)
	r.logger.Info("Quantidade ajustada com sucesso.", map[string]interface{}{
		"sweet_id":     id,
		"new_quantity": sweet.Quantity,
		"new_version":  sweet.Version,
	})
	return sweet, nil
}
