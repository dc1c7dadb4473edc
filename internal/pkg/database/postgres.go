package database

import (
	"database/sql"
	"fmt"
	"time"

	// Usamos o driver pq para PostgreSQL
	_ "github.com/lib/pq"
)

// NewPostgresDB inicializa e configura o pool de conexões com o PostgreSQL.
// Retorna a conexão *sql.DB pronta para uso.
func NewPostgresDB(dataSourceName string) (*sql.DB, error) {

	// 1. Abrir a Conexão (Sem tentar ainda usar o pool)
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// 2. Testar a Conexão Imediatamente
	// Garante que as credenciais e o servidor estão corretos
	if err = db.Ping(); err != nil {
		db.Close() // Fecha a conexão aberta se falhar
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// 3. Configuração do Connection Pool
	// MaxOpenConns: número máximo de conexões abertas com o banco de dados.
	db.SetMaxOpenConns(25)

	// MaxIdleConns: número máximo de conexões ociosas no pool.
	db.SetMaxIdleConns(10)

	// ConnMaxLifetime: tempo máximo de vida de uma conexão (evita problemas de rede/firewall).
	db.SetConnMaxLifetime(5 * time.Minute)

	// ConnMaxIdleTime: tempo máximo que uma conexão pode ficar ociosa antes de ser fechada.
	db.SetConnMaxIdleTime(2 * time.Minute)

	return db, nil
}
