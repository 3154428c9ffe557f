package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SearchProspects(ctx context.Context, db *gorm.DB, namePrefix string, limit int) ([]domain.Prospect, error) {
	var items []domain.Prospect
	stmt := prefixQuery(db.WithContext(ctx).Model(&domain.Prospect{}), namePrefix, limit)
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SearchPartners(ctx context.Context, db *gorm.DB, namePrefix string, limit int) ([]domain.Partner, error) {
	var items []domain.Partner
	stmt := prefixQuery(db.WithContext(ctx).Model(&domain.Partner{}), namePrefix, limit)
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindProspect(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Prospect, error) {
	var p domain.Prospect
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, created_at FROM prospects WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindPartner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var p domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, accreditation_code, created_at FROM partners WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func prefixQuery(stmt *gorm.DB, namePrefix string, limit int) *gorm.DB {
	if prefix := strings.ToLower(strings.TrimSpace(namePrefix)); prefix != "" {
		prefix = strings.NewReplacer(`%`, ``, `_`, ``).Replace(prefix)
		stmt = stmt.Where("LOWER(name) LIKE ?", prefix+"%")
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	return stmt.Order("name ASC")
}
