package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
)

// uniqueViolation é o código do PostgreSQL para violação de chave única.
const uniqueViolation = "23505"

// UserRepository implementa a interface domain.UserRepository.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Save insere um novo usuário no banco de dados.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	// 1. Configura Contexto com Timeout
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// 2. Prepara dados e ID
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	// 3. Executa o INSERT
	query := `INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(
		ctxTimeout,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Violação de unicidade do email vira um Conflito de Negócio (409).
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			r.logger.Info("Tentativa de registro com email duplicado.", map[string]interface{}{"email": user.Email})
			return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao inserir usuário", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// FindByEmail busca um usuário pelo endereço de e-mail.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.logger.Debug("Iniciando FindByEmail de usuário no repositório.", map[string]interface{}{"email_attempt": email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE email = $1`

	row := r.DB.QueryRowContext(ctxTimeout, query, email)

	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por email", err)
	}

	return user, nil
}

// FindByID busca um usuário pelo ID. Usado pelo middleware de autenticação
// para confirmar, a cada requisição, que a identidade do token ainda existe.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE id = $1`

	row := r.DB.QueryRowContext(ctxTimeout, query, id)

	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com ID %s não encontrado", id))
		}
		r.logger.Error("Falha ao buscar usuário por ID no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por ID", err)
	}

	return user, nil
}
