package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"canteen/internal/domain"
	"canteen/internal/errors"
)

const mysqlDuplicateEntry = 1062

const orderColumns = `
		id, orderNumber, barcode, customerId, customerName, items,
		subtotal, tax, amount, status, estimatedTime, paymentRef,
		createdAt, updatedAt, deliveredAt`

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, order *domain.Order) (int64, error) {
	items, err := domain.EncodeItems(order.Items)
	if err != nil {
		return 0, fmt.Errorf("encoding order items: %w", err)
	}

	query := `
		INSERT INTO Orders (orderNumber, barcode, customerId, customerName, items,
		                    subtotal, tax, amount, status, estimatedTime, paymentRef,
		                    createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.OrderNumber, order.Barcode, order.CustomerID, order.CustomerName, items,
		order.Subtotal, order.Tax, order.Amount, string(order.Status), order.EstimatedTime, order.PaymentRef,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, errors.NewDuplicateError(fmt.Sprintf("order identifier %s already taken", order.OrderNumber), err)
		}
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM Orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM Orders WHERE orderNumber = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with number %s not found", orderNumber))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by number: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM Orders WHERE barcode = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, barcode))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with barcode %s not found", barcode))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by barcode: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CustomerID != "" {
		conditions = append(conditions, "customerId = ?")
		args = append(args, filter.CustomerID)
	}

	query := `SELECT` + orderColumns + ` FROM Orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY createdAt DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, nil
}

// UpdateStatus moves an order from one status to another only if it is still
// in the expected status. It reports false when the row was not in from,
// leaving the caller to reload and decide.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error) {
	query := `
		UPDATE Orders
		SET status = ?, deliveredAt = COALESCE(?, deliveredAt), updatedAt = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, string(to), deliveredAt, time.Now().UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *MySQLOrderRepository) UpdateFields(ctx context.Context, id int64, patch domain.OrderPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.EstimatedTime != nil {
		sets = append(sets, "estimatedTime = ?")
		args = append(args, *patch.EstimatedTime)
	}
	if patch.CustomerName != nil {
		sets = append(sets, "customerName = ?")
		args = append(args, *patch.CustomerName)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updatedAt = ?")
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf(`UPDATE Orders SET %s WHERE id = ?`, strings.Join(sets, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating order fields: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		status      string
		items       []byte
		deliveredAt sql.NullTime
	)

	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.Barcode, &order.CustomerID, &order.CustomerName, &items,
		&order.Subtotal, &order.Tax, &order.Amount, &status, &order.EstimatedTime, &order.PaymentRef,
		&order.CreatedAt, &order.UpdatedAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	if deliveredAt.Valid {
		t := deliveredAt.Time
		order.DeliveredAt = &t
	}

	order.Items, err = domain.DecodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("decoding items of order %d: %w", order.ID, err)
	}

	return &order, nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
