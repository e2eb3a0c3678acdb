package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderNumberPrefix is the document type code of sales orders.
const OrderNumberPrefix = "SO"

// DocumentService issues gapless document numbers of the form <type>-<company>-<year>-<n>.
// Counters are kept per company, so the company code keeps numbers unique across companies.
type DocumentService interface {
	// NextNumber allocates a number in its own transaction.
	NextNumber(ctx context.Context, companyID int, typeCode string, financialYear *int) (string, error)
	// NextNumberTx allocates a number inside the caller's transaction, so a rolled back
	// order gives its number back.
	NextNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string, financialYear *int) (string, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

func (s *documentService) NextNumber(ctx context.Context, companyID int, typeCode string, financialYear *int) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := nextNumberWithTx(ctx, tx, companyID, typeCode, financialYear)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return number, nil
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string, financialYear *int) (string, error) {
	return nextNumberWithTx(ctx, tx, companyID, typeCode, financialYear)
}

// nextNumberWithTx bumps the sequence row for (company, type, year). The upsert holds the row
// lock until the caller's transaction ends, which keeps numbering gapless under concurrency.
func nextNumberWithTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string, financialYear *int) (string, error) {
	var (
		companyCode string
		lastNumber  int64
	)
	err := tx.QueryRow(ctx, `
		WITH seq AS (
			INSERT INTO document_sequences (company_id, type_code, financial_year, last_number)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (company_id, type_code, (COALESCE(financial_year, -1)))
			DO UPDATE SET last_number = document_sequences.last_number + 1
			RETURNING company_id, last_number
		)
		SELECT c.company_code, seq.last_number
		FROM seq JOIN companies c ON c.id = seq.company_id
	`, companyID, typeCode, financialYear).Scan(&companyCode, &lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return formatDocumentNumber(typeCode, companyCode, financialYear, lastNumber), nil
}

func formatDocumentNumber(typeCode, companyCode string, financialYear *int, n int64) string {
	yearStr := "GLOBAL"
	if financialYear != nil {
		yearStr = fmt.Sprintf("%d", *financialYear)
	}
	return fmt.Sprintf("%s-%s-%s-%05d", typeCode, companyCode, yearStr, n)
}
