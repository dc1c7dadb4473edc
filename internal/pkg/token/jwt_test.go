package token_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"sweetshop/internal/pkg/token"
)

// TestGenerateAndValidateToken testa o ciclo completo: gerar e validar.
func TestGenerateAndValidateToken(t *testing.T) {
	svc := token.NewService("segredo-de-teste", time.Hour)

	userID := uuid.New().String()
	tokenString, err := svc.GenerateToken(userID, "admin")

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	claims, err := svc.ValidateToken(tokenString)

	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "SweetShop-API", claims.Issuer)
}

// TestValidateToken_Fail_Expired testa que um token vencido é rejeitado.
func TestValidateToken_Fail_Expired(t *testing.T) {
	svc := token.NewService("segredo-de-teste", -time.Minute)

	tokenString, err := svc.GenerateToken(uuid.New().String(), "user")
	assert.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)

	assert.Error(t, err)
}

// TestValidateToken_Fail_WrongKey testa que um token assinado com outra chave
// é rejeitado.
func TestValidateToken_Fail_WrongKey(t *testing.T) {
	issuer := token.NewService("chave-a", time.Hour)
	validator := token.NewService("chave-b", time.Hour)

	tokenString, err := issuer.GenerateToken(uuid.New().String(), "user")
	assert.NoError(t, err)

	_, err = validator.ValidateToken(tokenString)

	assert.Error(t, err)
}

// TestValidateToken_Fail_Garbage testa uma string que nem é um JWT.
func TestValidateToken_Fail_Garbage(t *testing.T) {
	svc := token.NewService("segredo-de-teste", time.Hour)

	_, err := svc.ValidateToken("isto.nao.e-um-token")

	assert.Error(t, err)
}
