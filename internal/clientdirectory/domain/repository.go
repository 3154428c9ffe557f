package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	SearchProspects(ctx context.Context, db *gorm.DB, namePrefix string, limit int) ([]Prospect, error)
	SearchPartners(ctx context.Context, db *gorm.DB, namePrefix string, limit int) ([]Partner, error)
	FindProspect(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Prospect, error)
	FindPartner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
}
