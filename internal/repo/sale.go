// Package repo contains all database access logic for the ticket counter.
// Only SQL and type mapping live here.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/busops/ticket-counter/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// SaleRepo defines the persistence operations of the sales journal.
// A companyID of 0 means every company.
type SaleRepo interface {
	// Create appends one journal entry and returns it with the DB-generated
	// id and created_at populated.
	Create(ctx context.Context, sale domain.Sale) (domain.Sale, error)

	// GetByID returns one entry. Returns domain.ErrNotFound if it does not
	// exist or belongs to another company.
	GetByID(ctx context.Context, companyID int64, id uuid.UUID) (domain.Sale, error)

	// ListPaged returns one page of entries, newest first, and the total count.
	ListPaged(ctx context.Context, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error)

	// List returns every entry, oldest first. Used by the export.
	List(ctx context.Context, companyID int64) ([]domain.Sale, error)
}

type pgSaleRepo struct {
	db db
}

// NewSaleRepo constructs a SaleRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewSaleRepo(db db) SaleRepo {
	return &pgSaleRepo{db: db}
}

const saleColumns = `id, session_id, staff_id, company_id, kind, trip_ids, seat_count, total_price, success, message, created_at`

func (r *pgSaleRepo) Create(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	const q = `
		INSERT INTO sales (session_id, staff_id, company_id, kind, trip_ids, seat_count, total_price, success, message)
		VALUES (@session_id, @staff_id, @company_id, @kind, @trip_ids, @seat_count, @total_price, @success, @message)
		RETURNING ` + saleColumns

	tripIDs := sale.TripIDs
	if tripIDs == nil {
		tripIDs = []int64{}
	}
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"session_id":  sale.SessionID,
		"staff_id":    sale.StaffID,
		"company_id":  sale.CompanyID,
		"kind":        string(sale.Kind),
		"trip_ids":    tripIDs,
		"seat_count":  sale.SeatCount,
		"total_price": sale.TotalPrice,
		"success":     sale.Success,
		"message":     sale.Message,
	})

	created, err := scanSale(row)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("repo.SaleRepo.Create: %w", err)
	}
	return created, nil
}

func (r *pgSaleRepo) GetByID(ctx context.Context, companyID int64, id uuid.UUID) (domain.Sale, error) {
	const q = `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE id = @id
		  AND (@company_id::bigint = 0 OR company_id = @company_id::bigint)`

	sale, err := scanSale(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "company_id": companyID}))
	if err != nil {
		return domain.Sale{}, fmt.Errorf("repo.SaleRepo.GetByID: %w", err)
	}
	return sale, nil
}

func (r *pgSaleRepo) ListPaged(ctx context.Context, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error) {
	const countQ = `
		SELECT count(*)
		FROM sales
		WHERE (@company_id::bigint = 0 OR company_id = @company_id::bigint)`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"company_id": companyID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.SaleRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE (@company_id::bigint = 0 OR company_id = @company_id::bigint)
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	sales, err := r.query(ctx, q, pgx.NamedArgs{"company_id": companyID, "limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.SaleRepo.ListPaged: %w", err)
	}
	return sales, total, nil
}

func (r *pgSaleRepo) List(ctx context.Context, companyID int64) ([]domain.Sale, error) {
	const q = `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE (@company_id::bigint = 0 OR company_id = @company_id::bigint)
		ORDER BY created_at, id`

	sales, err := r.query(ctx, q, pgx.NamedArgs{"company_id": companyID})
	if err != nil {
		return nil, fmt.Errorf("repo.SaleRepo.List: %w", err)
	}
	return sales, nil
}

func (r *pgSaleRepo) query(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Sale, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return sales, nil
}

// scanSale maps a single database row into a domain.Sale.
func scanSale(s scanner) (domain.Sale, error) {
	var (
		sale      domain.Sale
		id, sesID pgtype.UUID
		kind      string
	)
	err := s.Scan(&id, &sesID, &sale.StaffID, &sale.CompanyID, &kind, &sale.TripIDs,
		&sale.SeatCount, &sale.TotalPrice, &sale.Success, &sale.Message, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sale{}, domain.ErrNotFound
		}
		return domain.Sale{}, err
	}
	sale.ID = uuid.UUID(id.Bytes)
	sale.SessionID = uuid.UUID(sesID.Bytes)
	sale.Kind = domain.ItineraryKind(kind)
	return sale, nil
}
