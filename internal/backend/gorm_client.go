package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// GormClient runs queries directly against the database through gorm.
type GormClient struct {
	db *gorm.DB
}

// NewGormClient wraps an open gorm connection
func NewGormClient(db *gorm.DB) *GormClient {
	return &GormClient{db: db}
}

// DB exposes the underlying connection for migrations and health checks
func (c *GormClient) DB() *gorm.DB {
	return c.db
}

func (c *GormClient) scoped(ctx context.Context, q *Query) *gorm.DB {
	tx := c.db.WithContext(ctx).Table(q.Table)

	for _, f := range q.Filters {
		column := clause.Column{Name: f.Column}
		switch f.Op {
		case OpEq:
			tx = tx.Where(clause.Eq{Column: column, Value: f.Value})
		case OpNeq:
			tx = tx.Where(clause.Neq{Column: column, Value: f.Value})
		case OpLt:
			tx = tx.Where(clause.Lt{Column: column, Value: f.Value})
		case OpIn:
			tx = tx.Where(clause.IN{Column: column, Values: f.Values})
		}
	}

	for _, o := range q.Orders {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	return tx
}

func (c *GormClient) Select(ctx context.Context, q *Query, dest interface{}) error {
	return translateError(c.scoped(ctx, q).Find(dest).Error)
}

func (c *GormClient) First(ctx context.Context, q *Query, dest interface{}) error {
	return translateError(c.scoped(ctx, q).Take(dest).Error)
}

func (c *GormClient) Count(ctx context.Context, q *Query) (int64, error) {
	var count int64
	unlimited := *q
	unlimited.Limit = 0
	unlimited.Orders = nil
	if err := c.scoped(ctx, &unlimited).Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (c *GormClient) Insert(ctx context.Context, row schema.Tabler) error {
	return translateError(c.db.WithContext(ctx).Create(row).Error)
}

func (c *GormClient) Update(ctx context.Context, q *Query, values map[string]interface{}) (int64, error) {
	result := c.scoped(ctx, q).Updates(values)
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func (c *GormClient) Delete(ctx context.Context, q *Query) (int64, error) {
	result := c.scoped(ctx, q).Delete(map[string]interface{}{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func (c *GormClient) Upsert(ctx context.Context, table string, values map[string]interface{}, conflictColumn string, updateColumns []string) error {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: conflictColumn}},
	}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	err := c.db.WithContext(ctx).Table(table).Clauses(onConflict).Create(values).Error
	return translateError(err)
}

func (c *GormClient) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite reports constraint failures only as text
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
