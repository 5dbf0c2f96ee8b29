package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"storefront-variant-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrProductNotFound   = errors.New("store: product not found")
	ErrVariantNotFound   = errors.New("store: variant not found")
	ErrVariantKeyExists  = errors.New("store: variant with this key already exists for the product")
	ErrInsufficientStock = errors.New("store: insufficient stock or update constraint violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	variantKeyConstraint = "variants_product_id_sku_key"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	productColumns = []string{"id", "store_id", "name", "description", "is_active", "created_at", "updated_at"}
	variantColumns = []string{"id", "product_id", "sku", "price", "stock_quantity", "is_active", "created_at", "updated_at"}
)

// PostgresStore implements ProductReader and VariantStorer on PostgreSQL.
// It works with either the lib/pq or the pgx stdlib driver behind *sql.DB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// pgErrorCode extracts the SQLSTATE from either driver's error type.
func pgErrorCode(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.StockQuantity, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// --- ProductReader Implementation ---

// GetProductByID loads a product with its ordered attributes and its variants.
func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query, args, err := psql.Select(productColumns...).
		From("products.products").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: GetProductByID failed to build query: %w", err)
	}

	var p domain.Product
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.StoreID, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}

	if p.Attributes, err = s.listAttributes(ctx, id); err != nil {
		return nil, err
	}
	if p.Variants, err = s.ListVariants(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) listAttributes(ctx context.Context, productID int64) ([]domain.Attribute, error) {
	query, args, err := psql.Select("a.id", "a.name", "v.id", "v.value").
		From("products.attributes a").
		LeftJoin("products.attribute_values v ON v.attribute_id = a.id").
		Where(sq.Eq{"a.product_id": productID}).
		OrderBy("a.position", "a.id", "v.position", "v.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: listAttributes failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listAttributes failed to query attributes: %w", err)
	}
	defer rows.Close()

	attrs := make([]domain.Attribute, 0)
	for rows.Next() {
		var (
			attrID    int64
			attrName  string
			valueID   sql.NullInt64
			valueText sql.NullString
		)
		if err := rows.Scan(&attrID, &attrName, &valueID, &valueText); err != nil {
			return nil, fmt.Errorf("store: listAttributes failed to scan row: %w", err)
		}
		// rows arrive grouped by attribute
		if n := len(attrs); n == 0 || attrs[n-1].ID != attrID {
			attrs = append(attrs, domain.Attribute{ID: attrID, Name: attrName, Values: []domain.AttributeValue{}})
		}
		if valueID.Valid {
			last := &attrs[len(attrs)-1]
			last.Values = append(last.Values, domain.AttributeValue{ID: valueID.Int64, Value: valueText.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listAttributes iteration error: %w", err)
	}
	return attrs, nil
}

// --- VariantStorer Implementation ---

func (s *PostgresStore) ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	query, args, err := psql.Select(variantColumns...).
		From("products.variants").
		Where(sq.Eq{"product_id": productID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: ListVariants failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: ListVariants failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := make([]domain.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListVariants failed to scan variant row: %w", err)
		}
		variants = append(variants, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListVariants iteration error: %w", err)
	}
	return variants, nil
}

// GetVariantByID loads a single variant. ErrVariantNotFound if absent.
func (s *PostgresStore) GetVariantByID(ctx context.Context, id int64) (*domain.Variant, error) {
	query, args, err := psql.Select(variantColumns...).
		From("products.variants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: GetVariantByID failed to build query: %w", err)
	}

	v, err := scanVariant(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("store: GetVariantByID failed to scan row: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) CreateVariant(ctx context.Context, v *domain.Variant) (*domain.Variant, error) {
	query, args, err := psql.Insert("products.variants").
		Columns("product_id", "sku", "price", "stock_quantity", "is_active").
		Values(v.ProductID, v.SKU, v.Price, v.StockQuantity, v.IsActive).
		Suffix("RETURNING " + strings.Join(variantColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: CreateVariant failed to build query: %w", err)
	}

	created, err := scanVariant(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if code, constraint, ok := pgErrorCode(err); ok {
			switch {
			case code == pgUniqueViolation && constraint == variantKeyConstraint:
				return nil, ErrVariantKeyExists
			case code == pgForeignKeyViolation:
				return nil, ErrProductNotFound
			}
		}
		return nil, fmt.Errorf("store: CreateVariant failed to scan row: %w", err)
	}
	return created, nil
}

// UpdateVariantStock applies a stock delta, refusing to let stock go negative.
func (s *PostgresStore) UpdateVariantStock(ctx context.Context, variantID int64, quantityChange int32) (*domain.Variant, error) {
	query, args, err := psql.Update("products.variants").
		Set("stock_quantity", sq.Expr("stock_quantity + ?", quantityChange)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": variantID}).
		Where("stock_quantity + ? >= 0", quantityChange).
		Suffix("RETURNING " + strings.Join(variantColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: UpdateVariantStock failed to build query: %w", err)
	}

	updated, err := scanVariant(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: UpdateVariantStock failed to scan row: %w", err)
		}
		// No row: either the variant is missing or the guard rejected the change.
		var exists bool
		checkQuery := "SELECT EXISTS(SELECT 1 FROM products.variants WHERE id = $1)"
		if err := s.db.QueryRowContext(ctx, checkQuery, variantID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("store: UpdateVariantStock failed to check existence: %w", err)
		}
		if !exists {
			return nil, ErrVariantNotFound
		}
		return nil, ErrInsufficientStock
	}
	return updated, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	log.Println("INFO: Closing database connection pool...")
	if err := s.db.Close(); err != nil {
		log.Printf("ERROR: Failed to close database connection pool: %v", err)
		return err
	}
	log.Println("INFO: Database connection pool closed successfully.")
	return nil
}
