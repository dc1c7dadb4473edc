package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"sweetshop/config"
	"sweetshop/internal/pkg/cache"
	"sweetshop/internal/pkg/database"
	"sweetshop/internal/pkg/logger"
	"sweetshop/internal/pkg/token"

	// Camadas da aplicação para Injeção de Dependências
	"sweetshop/internal/api/router"
	"sweetshop/internal/api/sweet"
	"sweetshop/internal/api/user"
	"sweetshop/internal/repository/sweetrepo"
	"sweetshop/internal/repository/userrepo"
	"sweetshop/internal/service/stockservice"
	"sweetshop/internal/service/sweetservice"
	"sweetshop/internal/service/userservice"
)

// @title SweetShop API
// @version 1.0
// @description API de gerenciamento de estoque da loja de doces.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço SweetShop...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Montagem da Clean Architecture)
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	sweetRepo := sweetrepo.NewSweetRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	log.Debug("Serviço de Tokens JWT inicializado.", nil)

	// C. Serviços (Camada de Lógica de Negócio)
	sweetSvc := sweetservice.NewService(sweetRepo, log)
	stockSvc := stockservice.NewService(sweetRepo, cfg.StockMaxRetries, log)
	userSvc := userservice.NewService(userRepo, tokenSvc, log)
	log.Debug("Serviços inicializados.", nil)

	// D. Handlers (Camada de Apresentação)
	sweetHandler := sweet.NewHandler(sweetSvc, stockSvc, log)
	userHandler := user.NewHandler(userSvc, log)
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(
		sweetHandler,
		userHandler,
		tokenSvc,
		userRepo,
		cacheClient,
		cfg.RateLimitMaxRequests,
		cfg.RateLimitPeriod,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor SweetShop ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
