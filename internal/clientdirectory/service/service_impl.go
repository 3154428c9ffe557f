package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const defaultSearchLimit = 25

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("clientdirectory.service"),
		repo: p.Repo,
	}
}

// Search queries prospects and partners concurrently and merges them by name.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Entry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	prefix := strings.TrimSpace(req.NamePrefix)

	var (
		prospects []domain.Prospect
		partners  []domain.Partner
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prospects, err = s.repo.SearchProspects(gctx, s.db, prefix, limit)
		return err
	})
	g.Go(func() error {
		var err error
		partners, err = s.repo.SearchPartners(gctx, s.db, prefix, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("client directory search failed", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(prospects)+len(partners))
	for _, p := range prospects {
		entries = append(entries, prospectEntry(p))
	}
	for _, p := range partners {
		entries = append(entries, partnerEntry(p))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		left, right := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if left == right {
			return entries[i].Type < entries[j].Type
		}
		return left < right
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) Get(ctx context.Context, clientType domain.ClientType, id string) (*domain.Entry, error) {
	if !clientType.Valid() {
		return nil, domain.ErrInvalidType
	}
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || clientID == 0 {
		return nil, domain.ErrInvalidID
	}

	switch clientType {
	case domain.ClientTypePartner:
		item, err := s.repo.FindPartner(ctx, s.db, clientID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, domain.ErrNotFound
		}
		entry := partnerEntry(*item)
		return &entry, nil
	default:
		item, err := s.repo.FindProspect(ctx, s.db, clientID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, domain.ErrNotFound
		}
		entry := prospectEntry(*item)
		return &entry, nil
	}
}

func prospectEntry(p domain.Prospect) domain.Entry {
	return domain.Entry{ID: p.ID, Type: domain.ClientTypeProspect, Name: p.Name, Email: p.Email, Phone: p.Phone}
}

func partnerEntry(p domain.Partner) domain.Entry {
	return domain.Entry{ID: p.ID, Type: domain.ClientTypePartner, Name: p.Name, Email: p.Email, Phone: p.Phone}
}
