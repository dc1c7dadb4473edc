package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"sweetshop/internal/domain"
	apperror "sweetshop/internal/errors"
	"sweetshop/internal/pkg/token"
)

// ContextKey é o tipo usado para chaves de contexto deste pacote.
// Usamos um tipo próprio para garantir que a chave seja única e não haja
// conflito com chaves string de outros pacotes.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
)

// UserClaims representa os dados do usuário resolvidos durante a autenticação,
// que serão anexados ao contexto da requisição. A Role vem do banco, não do
// payload do token: o token apenas vincula a identidade.
type UserClaims struct {
	UserID string
	Role   domain.UserRole
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// UserFinder define a busca de identidade necessária para o middleware.
// A identidade referenciada pelo token precisa ainda existir no banco.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
}

// writeError envia o corpo de erro padronizado {code, category, message},
// o mesmo formato que os handlers usam.
func writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// NewAuthMiddleware cria uma função de middleware que valida um JWT, confirma
// que o usuário referenciado ainda existe e anexa as claims (UserID e Role
// atual do banco) ao contexto da requisição.
//
// A checagem de autenticação (401) sempre precede a de autorização (403):
// este middleware só produz 401.
func NewAuthMiddleware(tokenSvc TokenService, users UserFinder) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			// 1. Extrair o Token do Header Authorization: Bearer <token>
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
				writeError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			tokenString := authHeader[7:]

			// 2. Validar o Token (assinatura, expiração)
			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				writeError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			// 3. Resolver a identidade no banco a cada requisição.
			// A role embutida no token não é confiada: se o usuário foi
			// removido ou alterado depois da emissão, vale o estado atual.
			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				writeError(w, apperror.NewUnauthorizedError("A identidade do token não existe mais."))
				return
			}

			// 4. Anexar Claims ao Contexto
			userClaims := UserClaims{
				UserID: user.ID,
				Role:   user.Role,
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, userClaims)

			// Chama o próximo handler com o novo contexto
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// GetUserClaimsFromContext é uma função utilitária para extrair as claims no handler.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

// PermissionMiddleware verifica se a role do usuário autenticado está na
// lista de roles permitidas para o recurso. Produz 403 (credencial válida,
// papel insuficiente), nunca 401.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			// 1. Tentar extrair as Claims do contexto
			claims, ok := GetUserClaimsFromContext(r.Context())

			// Se o AuthMiddleware não foi executado ou falhou em anexar as
			// claims, tratamos como não autenticado.
			if !ok {
				writeError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			// 2. Verificar Permissão (AuthZ)
			isAuthorized := false
			for _, requiredRole := range requiredRoles {
				if claims.Role == requiredRole {
					isAuthorized = true
					break
				}
			}

			if !isAuthorized {
				writeError(w, apperror.NewForbiddenError("Você não tem a permissão necessária para esta operação."))
				return
			}

			// 3. Permissão concedida: Chama o próximo handler
			next.ServeHTTP(w, r)
		}
	}
}
