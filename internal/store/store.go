package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/store/config"
)

type Store interface {
	AuthRegister(ctx context.Context, login string, passwordHash string) (string, error)
	AuthLogin(ctx context.Context, login string) (userCode string, passwordHash string, err error)
	OrderPost(ctx context.Context, order model.Order) error
	OrderPut(ctx context.Context, order model.Order) error
	OrderPatchCourier(ctx context.Context, owner string, id string, patch CourierPatch) error
	OrderGet(ctx context.Context, owner string, id string) (model.Order, error)
	OrderList(ctx context.Context, owner string) ([]model.Order, error)
	OrderListForSync(ctx context.Context, limit int) ([]model.Order, error)
	Close() error
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
)

type store struct {
	database *sql.DB
}

func NewStore(ctx context.Context, cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	// Таблицы создаются миграциями
	if err = runMigrations(cfg.DBDsn); err != nil {
		db.Close()
		return nil, err
	}

	return &store{
		database: db,
	}, nil
}

func (store *store) Close() error {
	return store.database.Close()
}

func (store *store) AuthRegister(ctx context.Context, login string, passwordHash string) (string, error) {
	// Запись нового пользователя
	userCode := uuid.NewString()
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO users (id, login, password_hash)"+
			" VALUES ($1, $2, $3)",
		userCode,
		login,
		passwordHash)
	if err != nil {
		// Проверка: уже существует
		if isUniqueViolation(err) {
			return "", ErrAlreadyExists
		}
		return "", err
	}

	return userCode, nil
}

func (store *store) AuthLogin(ctx context.Context, login string) (string, string, error) {
	// Получение ID пользователя и хеша пароля
	row := store.database.QueryRowContext(ctx,
		"SELECT id, password_hash FROM users"+
			" WHERE login = $1",
		login)
	var userCode, passwordHash string
	err := row.Scan(&userCode, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNoRows
		}
		return "", "", err
	}

	return userCode, passwordHash, nil
}

const orderColumns = "id, owner, number, customer_name, order_date, order_source, status, payment_status," +
	" payment_method, items, delivery_charge, discount, total_price, tracking_number, dispatch_date," +
	" delivered_date, courier_finance_status, courier_invoice_no, courier_invoice_ref, courier_deposited_date," +
	" created_at, updated_at"

func (store *store) OrderPost(ctx context.Context, order model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	//Запись нового заказа
	_, err = store.database.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+")"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)",
		order.ID,
		order.Owner,
		order.Number,
		order.CustomerName,
		order.OrderDate,
		order.OrderSource,
		order.Status,
		order.Payment,
		order.PayMethod,
		string(items),
		toNumeric(order.Delivery),
		toNumeric(order.Discount),
		toNumeric(order.TotalPrice),
		order.TrackingNumber,
		order.DispatchDate,
		order.DeliveredDate,
		order.FinanceStatus,
		order.InvoiceNo,
		order.InvoiceRef,
		order.DepositedDate,
		order.CreatedAt,
		order.UpdatedAt)
	if err != nil {
		// Проверка: уже существует
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (store *store) OrderPut(ctx context.Context, order model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	//Обновление заказа. Владелец и дата создания не меняются
	res, err := store.database.ExecContext(ctx,
		"UPDATE orders SET"+
			" number = $3, customer_name = $4, order_date = $5, order_source = $6,"+
			" status = $7, payment_status = $8, payment_method = $9, items = $10,"+
			" delivery_charge = $11, discount = $12, total_price = $13,"+
			" tracking_number = $14, dispatch_date = $15, delivered_date = $16,"+
			" courier_finance_status = $17, courier_invoice_no = $18, courier_invoice_ref = $19,"+
			" courier_deposited_date = $20, updated_at = $21"+
			" WHERE id = $1"+
			"   AND owner = $2",
		order.ID,
		order.Owner,
		order.Number,
		order.CustomerName,
		order.OrderDate,
		order.OrderSource,
		order.Status,
		order.Payment,
		order.PayMethod,
		string(items),
		toNumeric(order.Delivery),
		toNumeric(order.Discount),
		toNumeric(order.TotalPrice),
		order.TrackingNumber,
		order.DispatchDate,
		order.DeliveredDate,
		order.FinanceStatus,
		order.InvoiceNo,
		order.InvoiceRef,
		order.DepositedDate,
		order.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

// CourierPatch - поля заказа, измененные сверкой с курьером.
// nil - поле не трогаем
type CourierPatch struct {
	Status        *string
	Payment       *string
	DeliveredDate *string
	FinanceStatus *string
	InvoiceNo     *string
	InvoiceRef    *string
	DepositedDate *string
	UpdatedAt     time.Time
}

// OrderPatchCourier обновляет только переданные поля, остальные колонки
// (в том числе правки пользователя, сделанные во время запроса к курьеру) сохраняются
func (store *store) OrderPatchCourier(ctx context.Context, owner string, id string, patch CourierPatch) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE orders SET"+
			" status = COALESCE($3, status),"+
			" payment_status = COALESCE($4, payment_status),"+
			" delivered_date = COALESCE($5, delivered_date),"+
			" courier_finance_status = COALESCE($6, courier_finance_status),"+
			" courier_invoice_no = COALESCE($7, courier_invoice_no),"+
			" courier_invoice_ref = COALESCE($8, courier_invoice_ref),"+
			" courier_deposited_date = COALESCE($9, courier_deposited_date),"+
			" updated_at = $10"+
			" WHERE id = $1"+
			"   AND owner = $2",
		id,
		owner,
		patch.Status,
		patch.Payment,
		patch.DeliveredDate,
		patch.FinanceStatus,
		patch.InvoiceNo,
		patch.InvoiceRef,
		patch.DepositedDate,
		patch.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (store *store) OrderGet(ctx context.Context, owner string, id string) (model.Order, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT "+orderColumns+
			" FROM orders"+
			" WHERE id = $1"+
			"   AND owner = $2",
		id,
		owner)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrNoRows
		}
		return model.Order{}, err
	}
	return order, nil
}

func (store *store) OrderList(ctx context.Context, owner string) ([]model.Order, error) {
	//Получение заказов пользователя, новые первыми
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+orderColumns+
			" FROM orders"+
			" WHERE owner = $1"+
			" ORDER BY created_at DESC",
		owner)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// OrderListForSync - заказы с трек-номером, по которым курьер еще может что-то сообщить:
// не доставлены и не отменены, либо доставлены, но не оплачены.
// Давно не обновлявшиеся идут первыми
func (store *store) OrderListForSync(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+orderColumns+
			" FROM orders"+
			" WHERE tracking_number <> ''"+
			"   AND (status NOT IN ($1, $2)"+
			"    OR (status = $1 AND payment_status <> $3))"+
			" ORDER BY updated_at"+
			" LIMIT $4",
		model.OrderStatusDelivered,
		model.OrderStatusCancelled,
		model.PaymentStatusPaid,
		limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		order                     model.Order
		items                     []byte
		delivery, discount, total decimal.Decimal
	)
	err := row.Scan(&order.ID,
		&order.Owner,
		&order.Number,
		&order.CustomerName,
		&order.OrderDate,
		&order.OrderSource,
		&order.Status,
		&order.Payment,
		&order.PayMethod,
		&items,
		&delivery,
		&discount,
		&total,
		&order.TrackingNumber,
		&order.DispatchDate,
		&order.DeliveredDate,
		&order.FinanceStatus,
		&order.InvoiceNo,
		&order.InvoiceRef,
		&order.DepositedDate,
		&order.CreatedAt,
		&order.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}

	if err = json.Unmarshal(items, &order.Items); err != nil {
		return model.Order{}, fmt.Errorf("order %s items: %w", order.ID, err)
	}
	order.Delivery = delivery.InexactFloat64()
	order.Discount = discount.InexactFloat64()
	order.TotalPrice = total.InexactFloat64()

	return order, nil
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// суммы хранятся в NUMERIC(14, 2)
func toNumeric(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
