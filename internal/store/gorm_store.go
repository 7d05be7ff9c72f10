package store

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/shuttleapi/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps each collection in its own table. Field names are column names.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) table(ctx context.Context, coll entity.Collection) *gorm.DB {
	return s.db.WithContext(ctx).Table(string(coll))
}

func (s *GormStore) Get(ctx context.Context, coll entity.Collection, id string, dst any) error {
	err := s.table(ctx, coll).Where(map[string]any{coll.KeyField(): id}).Take(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) Find(ctx context.Context, coll entity.Collection, q Query, dst any) error {
	tx := s.table(ctx, coll)
	for _, f := range q.Filters {
		tx = tx.Where(map[string]any{f.Field: f.Value})
	}
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx.Find(dst).Error
}

func (s *GormStore) Create(ctx context.Context, coll entity.Collection, doc Document) error {
	ensureID(doc)
	err := s.table(ctx, coll).Create(doc).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	return err
}

func (s *GormStore) Set(ctx context.Context, coll entity.Collection, doc Document) error {
	ensureID(doc)
	return s.table(ctx, coll).Clauses(clause.OnConflict{UpdateAll: true}).Create(doc).Error
}

func (s *GormStore) Update(ctx context.Context, coll entity.Collection, id string, fields Fields) error {
	return update(s.db.WithContext(ctx), coll, id, fields)
}

func (s *GormStore) Delete(ctx context.Context, coll entity.Collection, id string) error {
	return remove(s.db.WithContext(ctx), coll, id)
}

func (s *GormStore) Batch() Batch {
	return &gormBatch{db: s.db}
}

func update(tx *gorm.DB, coll entity.Collection, id string, fields Fields) error {
	res := tx.Table(string(coll)).
		Where(map[string]any{coll.KeyField(): id}).
		Updates(map[string]any(fields))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	return nil
}

func remove(tx *gorm.DB, coll entity.Collection, id string) error {
	return tx.Exec("DELETE FROM ? WHERE ? = ?",
		clause.Table{Name: string(coll)},
		clause.Column{Name: coll.KeyField()},
		id,
	).Error
}

type gormBatch struct {
	opList
	db *gorm.DB
}

func (b *gormBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			var err error
			switch op.Kind {
			case OpUpdate:
				err = update(tx, op.Collection, op.ID, op.Fields)
			case OpDelete:
				err = remove(tx, op.Collection, op.ID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
