package userservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/logger"
	"sweetshop/internal/pkg/token"
	"sweetshop/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func newTokenService() *token.Service {
	return token.NewService("segredo-de-teste", time.Hour)
}

// TestRegister_Success_DefaultRole testa que um registro sem papel vira "user".
func TestRegister_Success_DefaultRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	registration := domain.UserRegistration{
		Name:     "Maria Doceira",
		Email:    "maria@doces.com",
		Password: "senha-forte",
	}

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Role == domain.RoleUser && u.Email == registration.Email && u.PasswordHash != registration.Password
	})).Return(domain.User{ID: uuid.New().String(), Name: registration.Name, Email: registration.Email, Role: domain.RoleUser}, nil)

	user, err := svc.Register(context.Background(), registration)

	assert.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	mockRepo.AssertExpectations(t)
}

// TestRegister_Success_AdminRole testa que o papel "admin" do payload é honrado.
func TestRegister_Success_AdminRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	registration := domain.UserRegistration{
		Name:     "João Gerente",
		Email:    "joao@doces.com",
		Password: "senha-forte",
		Role:     domain.RoleAdmin,
	}

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Role == domain.RoleAdmin
	})).Return(domain.User{ID: uuid.New().String(), Role: domain.RoleAdmin}, nil)

	user, err := svc.Register(context.Background(), registration)

	assert.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	mockRepo.AssertExpectations(t)
}

// TestRegister_Fail_MissingFields testa registros incompletos.
func TestRegister_Fail_MissingFields(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	cases := []domain.UserRegistration{
		{Email: "a@b.com", Password: "x"},
		{Name: "Ana", Password: "x"},
		{Name: "Ana", Email: "a@b.com"},
	}

	for _, registration := range cases {
		_, err := svc.Register(context.Background(), registration)

		assert.Error(t, err)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_Fail_InvalidRole testa um papel fora do enum.
func TestRegister_Fail_InvalidRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	registration := domain.UserRegistration{
		Name:     "Ana",
		Email:    "ana@doces.com",
		Password: "x",
		Role:     "superuser",
	}

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_Fail_DuplicateEmail testa que o conflito do repositório
// (email único) passa intacto para o chamador.
func TestRegister_Fail_DuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	registration := domain.UserRegistration{Name: "Ana", Email: "ana@doces.com", Password: "x"}

	mockRepo.On("Save", mock.Anything, mock.Anything).
		Return(domain.User{}, apperror.NewConflictError("O email já está em uso."))

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestLogin_Success testa um login com credenciais corretas: o token emitido
// deve carregar o ID e o papel do usuário.
func TestLogin_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	tokenSvc := newTokenService()
	svc := userservice.NewService(mockRepo, tokenSvc, mockLogger)

	password := "senha-forte"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)

	user := domain.User{
		ID:           uuid.New().String(),
		Email:        "maria@doces.com",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	mockRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

	tokenString, err := svc.Login(context.Background(), user.Email, password)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	claims, err := tokenSvc.ValidateToken(tokenString)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)
	mockRepo.AssertExpectations(t)
}

// TestLogin_Fail_WrongPassword testa um login com a senha errada.
func TestLogin_Fail_WrongPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-certa"), bcrypt.MinCost)
	user := domain.User{ID: uuid.New().String(), Email: "maria@doces.com", PasswordHash: string(hash)}

	mockRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), user.Email, "senha-errada")

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
}

// TestLogin_Fail_UnknownEmail testa que um email desconhecido vira 401, não
// 404: a resposta não pode revelar quais emails existem.
func TestLogin_Fail_UnknownEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockLogger := logger.NewLogger("error")

	svc := userservice.NewService(mockRepo, newTokenService(), mockLogger)

	mockRepo.On("FindByEmail", mock.Anything, "fantasma@doces.com").
		Return(domain.User{}, apperror.NewNotFoundError("Usuário não encontrado."))

	_, err := svc.Login(context.Background(), "fantasma@doces.com", "qualquer")

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
	mockRepo.AssertExpectations(t)
}
