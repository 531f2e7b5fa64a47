package repo

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderEventSQLRepo struct {
	db *gorm.DB
}

func NewOrderEventSQLRepo(db *gorm.DB) *OrderEventSQLRepo {
	return &OrderEventSQLRepo{
		db: db,
	}
}

func (s *OrderEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Create ignores an event id that was already stored, so redelivered messages are harmless.
func (r *OrderEventSQLRepo) Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error) {
	return record, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
}

func (r *OrderEventSQLRepo) BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}

func (r *OrderEventSQLRepo) ListByStrategy(ctx context.Context, strategyID string, limit int) ([]*model.OrderEvent, error) {
	var out []*model.OrderEvent
	q := r.dbWithContext(ctx).Where("strategy_id = ?", strategyID).Order("timestamp ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}
