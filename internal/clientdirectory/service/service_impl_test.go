package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/repository"
	"github.com/smallbiznis/orderdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSearch_MergesAndTagsBothDirectories(t *testing.T) {
	db := dbtest.Open(t, &domain.Prospect{}, &domain.Partner{})
	node, _ := snowflake.NewNode(1)

	prospect := domain.Prospect{ID: node.Generate(), Name: "Marina Lopes", Email: "marina@example.com"}
	otherProspect := domain.Prospect{ID: node.Generate(), Name: "Otavio Reis"}
	partner := domain.Partner{ID: node.Generate(), Name: "Matriz Alfa", AccreditationCode: "AC-17"}
	require.NoError(t, db.Create(&prospect).Error)
	require.NoError(t, db.Create(&otherProspect).Error)
	require.NoError(t, db.Create(&partner).Error)

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})

	entries, err := svc.Search(context.Background(), domain.SearchRequest{NamePrefix: "ma"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Marina Lopes", entries[0].Name)
	assert.Equal(t, domain.ClientTypeProspect, entries[0].Type)
	assert.Equal(t, "Matriz Alfa", entries[1].Name)
	assert.Equal(t, domain.ClientTypePartner, entries[1].Type)

	all, err := svc.Search(context.Background(), domain.SearchRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGet_ResolvesByOrigin(t *testing.T) {
	db := dbtest.Open(t, &domain.Prospect{}, &domain.Partner{})
	node, _ := snowflake.NewNode(1)

	partner := domain.Partner{ID: node.Generate(), Name: "Centro Tecnico Beta"}
	require.NoError(t, db.Create(&partner).Error)

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
	ctx := context.Background()

	entry, err := svc.Get(ctx, domain.ClientTypePartner, partner.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ClientTypePartner, entry.Type)

	_, err = svc.Get(ctx, domain.ClientTypeProspect, partner.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, domain.ClientType("vendor"), partner.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}
