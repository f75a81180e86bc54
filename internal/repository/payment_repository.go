package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			payment_id VARCHAR(255) NOT NULL UNIQUE,
			customer_id VARCHAR(255) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			amount DECIMAL(19,2) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			payment_method VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			gateway VARCHAR(50) NOT NULL,
			description VARCHAR(500),
			gateway_response TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP,
			processed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_payment_id ON payments(payment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_customer_id ON payments(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

const paymentColumns = `id, payment_id, customer_id, customer_email, amount, currency,
	payment_method, status, gateway, description, gateway_response,
	created_at, updated_at, processed_at`

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO payments (payment_id, customer_id, customer_email, amount, currency,
			payment_method, status, gateway, description, gateway_response, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, payment.PaymentID, payment.CustomerID, payment.CustomerEmail, payment.Amount,
		payment.Currency, payment.PaymentMethod, payment.Status, payment.Gateway,
		payment.Description, payment.GatewayResponse, payment.ProcessedAt,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID)
	return scanPayment(row)
}

func (r *PaymentRepository) GetByCustomerID(ctx context.Context, customerID string) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE customer_id = $1`, customerID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) GetByStatus(ctx context.Context, status models.PaymentStatus) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1`, status)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) GetAll(ctx context.Context) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments`)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE payment_id = $2`,
		status, paymentID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// CreateRefund performs both refund writes in one transaction. The status
// transition is conditional on the original still being SUCCESS, so two
// concurrent refund attempts cannot both pass.
func (r *PaymentRepository) CreateRefund(ctx context.Context, originalPaymentID string, refund *models.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE payment_id = $2 AND status = $3
	`, models.StatusRefunded, originalPaymentID, models.StatusSuccess)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return interfaces.ErrStatusConflict
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (payment_id, customer_id, customer_email, amount, currency,
			payment_method, status, gateway, description, gateway_response, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, refund.PaymentID, refund.CustomerID, refund.CustomerEmail, refund.Amount,
		refund.Currency, refund.PaymentMethod, refund.Status, refund.Gateway,
		refund.Description, refund.GatewayResponse, refund.ProcessedAt,
	).Scan(&refund.ID, &refund.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	var description, gatewayResponse sql.NullString
	var updatedAt, processedAt sql.NullTime

	err := row.Scan(&payment.ID, &payment.PaymentID, &payment.CustomerID,
		&payment.CustomerEmail, &payment.Amount, &payment.Currency,
		&payment.PaymentMethod, &payment.Status, &payment.Gateway,
		&description, &gatewayResponse,
		&payment.CreatedAt, &updatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	payment.Description = description.String
	payment.GatewayResponse = gatewayResponse.String
	if updatedAt.Valid {
		payment.UpdatedAt = &updatedAt.Time
	}
	if processedAt.Valid {
		payment.ProcessedAt = &processedAt.Time
	}
	return &payment, nil
}

func scanPayments(rows *sql.Rows) ([]models.Payment, error) {
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}
