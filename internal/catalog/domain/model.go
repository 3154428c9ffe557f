package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// KindProduct marks catalog records that can be sold as shippable parts.
const KindProduct = "product"

type Product struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name             string          `json:"name" gorm:"type:text;not null"`
	Kind             string          `json:"kind" gorm:"type:text;not null;default:'product';index"`
	WeightKg         decimal.Decimal `json:"weight_kg" gorm:"type:numeric(10,3);not null;default:0"`
	PriceStandard    decimal.Decimal `json:"price_standard" gorm:"type:numeric(12,2);not null;default:0"`
	PriceRetail      decimal.Decimal `json:"price_retail" gorm:"type:numeric(12,2);not null;default:0"`
	PricePartner     decimal.Decimal `json:"price_partner" gorm:"type:numeric(12,2);not null;default:0"`
	PriceDistributor decimal.Decimal `json:"price_distributor" gorm:"type:numeric(12,2);not null;default:0"`
	Active           bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
