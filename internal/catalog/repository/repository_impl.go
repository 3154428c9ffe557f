package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/catalog/domain"
	"gorm.io/gorm"
)

const productColumns = `id, name, kind, weight_kg, price_standard, price_retail, price_partner, price_distributor, active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+`
		 FROM products WHERE id = ? AND kind = ? AND active = ?`,
		id,
		domain.KindProduct,
		true,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListSellable(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select(productColumns).
		Where("kind = ? AND active = ?", domain.KindProduct, true)

	if prefix := strings.ToLower(strings.TrimSpace(filter.NamePrefix)); prefix != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", escapeLike(prefix)+"%")
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`%`, ``, `_`, ``)
	return replacer.Replace(value)
}
