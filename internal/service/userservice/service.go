package userservice

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
	"sweetshop/internal/pkg/token"
)

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID string, userRole string) (string, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// UserService define o serviço de lógica de negócio para a entidade User.
type UserService struct {
	UserRepo domain.UserRepository
	TokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do UserService, injetando o Repositório.
func NewService(repo domain.UserRepository, tokenSvc TokenService, logger logger.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		TokenSvc: tokenSvc,
		logger:   logger,
	}
}

// Register registra um novo usuário no sistema.
// Ele faz o hashing da senha e lida com validações básicas. O papel vem do
// payload (padrão "user"; "admin" é aceito como no sistema original, sem
// workflow de aprovação).
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	// 1. Validação Básica
	if registration.Name == "" || registration.Email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Nome, email e senha são obrigatórios.")
	}

	role := registration.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return domain.User{}, apperror.NewValidationError("O papel informado não é válido.")
	}

	// 2. Hashing da Senha
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Criação do Objeto User
	newUser := domain.User{
		Name:         registration.Name,
		Email:        registration.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// 4. Chamada ao Repositório para Persistência
	user, err := s.UserRepo.Save(ctx, newUser)
	if err != nil {
		// Email duplicado chega como ConflictError do repositório (409).
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return domain.User{}, err
		}
		s.logger.Error("Falha ao salvar usuário no repositório.", err)
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	// 1. Validação Básica
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	// 2. Buscar Usuário pelo Email
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// Se for um NotFoundError (404), tratamos como Unauthorized (401)
		// para não dar dicas a invasores.
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	// 3. Comparar Senhas (Hashing)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	// 4. Gerar JWT
	tokenString, err := s.TokenSvc.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	// 5. Sucesso
	return tokenString, nil
}
