package router

import (
	"net/http"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "sweetshop/docs" // Registra o documento OpenAPI gerado
	"sweetshop/internal/api/sweet"
	"sweetshop/internal/api/user"
	"sweetshop/internal/domain"
	"sweetshop/internal/pkg/cache"
	"sweetshop/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências e aplica
// a matriz de capacidades: listagem/busca são públicas, compra exige
// autenticação, e toda mutação de catálogo/estoque exige admin.
func NewRouter(
	sweetHandler *sweet.Handler,
	userHandler *user.Handler,
	tokenSvc middleware.TokenService,
	users middleware.UserFinder,
	cacheClient cache.Client,
	rateLimitMax int,
	rateLimitPeriod time.Duration,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	// Middlewares de autenticação (401) e autorização (403).
	// A autenticação sempre precede a autorização.
	authenticated := middleware.NewAuthMiddleware(tokenSvc, users)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin)

	// Rotas protegidas, compostas uma única vez na construção do roteador.
	createSweet := authenticated(adminOnly(sweetHandler.CreateSweetHandler))
	updateSweet := authenticated(adminOnly(sweetHandler.UpdateSweetHandler))
	deleteSweet := authenticated(adminOnly(sweetHandler.DeleteSweetHandler))
	restockSweet := authenticated(adminOnly(sweetHandler.RestockSweetHandler))
	purchaseSweet := authenticated(sweetHandler.PurchaseSweetHandler) // qualquer papel autenticado

	// --- 1. Rotas de Health Check e Documentação ---
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// --- 2. Rotas de Usuário ---
	mux.HandleFunc("/v1/register", userHandler.RegisterUserHandler)
	mux.HandleFunc("/v1/login", userHandler.LoginUserHandler)

	// --- 3. Rotas do Catálogo de Doces ---

	// GET  /v1/sweets (listagem pública paginada)
	// POST /v1/sweets (criação, somente admin)
	mux.HandleFunc("/v1/sweets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sweetHandler.ListSweetsHandler(w, r)
		case http.MethodPost:
			createSweet(w, r)
		default:
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		}
	})

	// Subárvore /v1/sweets/: despacho por segmentos do caminho.
	mux.HandleFunc("/v1/sweets/", func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

		switch {
		// GET /v1/sweets/search (busca pública)
		case len(segments) == 3 && segments[2] == "search" && r.Method == http.MethodGet:
			sweetHandler.SearchSweetsHandler(w, r)

		// GET|PUT|DELETE /v1/sweets/{id}
		case len(segments) == 3 && r.Method == http.MethodGet:
			sweetHandler.GetSweetByIDHandler(w, r)
		case len(segments) == 3 && r.Method == http.MethodPut:
			updateSweet(w, r)
		case len(segments) == 3 && r.Method == http.MethodDelete:
			deleteSweet(w, r)

		// POST /v1/sweets/{id}/purchase (qualquer usuário autenticado)
		case len(segments) == 4 && segments[3] == "purchase" && r.Method == http.MethodPost:
			purchaseSweet(w, r)

		// POST /v1/sweets/{id}/restock (somente admin)
		case len(segments) == 4 && segments[3] == "restock" && r.Method == http.MethodPost:
			restockSweet(w, r)

		default:
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		}
	})

	// --- 4. Middlewares Globais ---
	return middleware.RateLimiter(cacheClient, rateLimitMax, rateLimitPeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
