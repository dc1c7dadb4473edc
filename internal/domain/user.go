package domain

import (
	"context"
	"time"
)

// User representa a entidade do usuário no sistema.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

// Constantes para os papéis de usuário. O papel é fixado no registro;
// não existe fluxo de elevação de privilégio.
const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// IsValid verifica se o papel é um dos papéis conhecidos.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserRegistration representa o payload de entrada para o registro.
// O campo Role é opcional: vazio vira "user"; "admin" é aceito como no
// comportamento original (sem workflow de aprovação).
type UserRegistration struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     UserRole `json:"role,omitempty"`
}

// UserRepository define o contrato de persistência para a entidade User.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// UserService define o contrato de lógica de negócio para a entidade User.
type UserService interface {
	Register(ctx context.Context, registration UserRegistration) (User, error)
	Login(ctx context.Context, email string, password string) (string, error)
}
