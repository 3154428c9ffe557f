package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ClientType tags which directory a client entry came from.
type ClientType string

const (
	ClientTypeProspect ClientType = "prospect"
	ClientTypePartner  ClientType = "partner"
)

func (t ClientType) Valid() bool {
	return t == ClientTypeProspect || t == ClientTypePartner
}

// Prospect is a lead captured by the sales team.
type Prospect struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text" json:"email"`
	Phone     string       `gorm:"type:text" json:"phone"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Prospect) TableName() string { return "prospects" }

// Partner is an accredited reseller or training center.
type Partner struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	Email             string       `gorm:"type:text" json:"email"`
	Phone             string       `gorm:"type:text" json:"phone"`
	AccreditationCode string       `gorm:"type:text" json:"accreditation_code"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Partner) TableName() string { return "partners" }

// Entry is one addressable row of the merged directory.
type Entry struct {
	ID    snowflake.ID `json:"id"`
	Type  ClientType   `json:"type"`
	Name  string       `json:"name"`
	Email string       `json:"email,omitempty"`
	Phone string       `json:"phone,omitempty"`
}
