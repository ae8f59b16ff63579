package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/infrastructure/resilience"
)

const processableFilter = `texto_pdf IS NOT NULL AND sumario IS NOT NULL`

// AcordaoRepository reads the acordaos table populated by the ingestion pipeline.
type AcordaoRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewAcordaoRepository(db *sql.DB, executor *resilience.Executor) *AcordaoRepository {
	return &AcordaoRepository{db: db, executor: executor}
}

func (r *AcordaoRepository) ListProcessable(ctx context.Context, limit int) ([]domain.Acordao, error) {
	query := `
SELECT id, numero_acordao, ano_acordao, titulo, sumario, texto_pdf, data_sessao, relator, colegiado, url_acordao
FROM acordaos
WHERE ` + processableFilter + `
ORDER BY data_sessao DESC NULLS LAST, id DESC
`
	args := []any{}
	if limit > 0 {
		query += "LIMIT $1"
		args = append(args, limit)
	}

	const op = "postgres.list_acordaos"
	docs, err := resilience.Do(ctx, r.executor, op, func(ctx context.Context) ([]domain.Acordao, error) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("list acordaos: %w", err)
		}
		defer rows.Close()

		out := make([]domain.Acordao, 0)
		for rows.Next() {
			doc, err := scanAcordao(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate acordaos: %w", err)
		}
		return out, nil
	}, classifyPostgresError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(op, err)
	}
	return docs, nil
}

func (r *AcordaoRepository) Counts(ctx context.Context) (domain.CorpusStats, error) {
	query := `
SELECT COUNT(*), COUNT(*) FILTER (WHERE ` + processableFilter + `)
FROM acordaos
`
	const op = "postgres.count_acordaos"
	stats, err := resilience.Do(ctx, r.executor, op, func(ctx context.Context) (domain.CorpusStats, error) {
		var stats domain.CorpusStats
		if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Processable); err != nil {
			return domain.CorpusStats{}, fmt.Errorf("count acordaos: %w", err)
		}
		return stats, nil
	}, classifyPostgresError)
	if err != nil {
		return domain.CorpusStats{}, wrapTemporaryIfNeeded(op, err)
	}
	return stats, nil
}

// Ping reports whether the document store is reachable.
func (r *AcordaoRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return wrapTemporaryIfNeeded("postgres.ping", fmt.Errorf("ping: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAcordao(row rowScanner) (domain.Acordao, error) {
	var doc domain.Acordao
	var titulo, sumario, texto, relator, colegiado, url sql.NullString
	var dataSessao sql.NullTime
	err := row.Scan(
		&doc.ID, &doc.Numero, &doc.Ano, &titulo, &sumario, &texto,
		&dataSessao, &relator, &colegiado, &url,
	)
	if err != nil {
		return domain.Acordao{}, fmt.Errorf("scan acordao: %w", err)
	}
	doc.Titulo = titulo.String
	doc.Sumario = sumario.String
	doc.TextoPDF = texto.String
	doc.Relator = relator.String
	doc.Colegiado = colegiado.String
	doc.URL = url.String
	if dataSessao.Valid {
		ts := dataSessao.Time
		doc.DataSessao = &ts
	}
	return doc, nil
}
