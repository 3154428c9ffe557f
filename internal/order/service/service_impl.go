package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/actor"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Policy  *lockpolicy.Policy
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	policy  *lockpolicy.Policy
	clock   clock.Clock
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		policy:  p.Policy,
		clock:   p.Clock,
		metrics: p.Metrics,
		tracer:  otel.Tracer("orderdesk/order"),
	}
}

func (s *Service) Commit(ctx context.Context, a actor.Actor, order domain.Order) (id snowflake.ID, err error) {
	ctx, span := s.tracer.Start(ctx, "order.commit", trace.WithAttributes(
		attribute.Bool("order.new", order.IsNew()),
		attribute.Int("order.lines", len(order.Lines)),
	))
	start := time.Now()
	result := metrics.CommitResultOK
	defer func() {
		s.metrics.ObserveCommit(result, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		span.End()
	}()

	if err := order.Validate(); err != nil {
		result = metrics.CommitResultValidation
		return 0, err
	}

	// The lock check always runs on the stored status; another editor may have
	// advanced the order since this snapshot was taken.
	if !order.IsNew() {
		stored, err := s.repo.FindStatus(ctx, s.db, order.ID)
		if err != nil {
			result = metrics.CommitResultPersistence
			return 0, s.persistenceFailure(StepLoadStatus, order, err)
		}
		if !s.policy.CanMutate(ctx, stored, a) {
			result = metrics.CommitResultPermissionDenied
			s.log.Warn("commit rejected for locked order",
				zap.String("order_number", order.Number),
				zap.String("status", string(stored)),
				zap.String("actor_id", a.ID),
			)
			return 0, domain.ErrPermissionDenied
		}
	}

	rec, err := domain.NewOrderRecord(order)
	if err != nil {
		result = metrics.CommitResultValidation
		return 0, err
	}

	now := s.clock.Now().UTC()
	rec.UpdatedAt = now
	if order.IsNew() {
		rec.ID = s.genID.Generate()
		rec.CreatedAt = now
		if rec.OrderNumber == "" {
			rec.OrderNumber = domain.NewOrderNumber(now)
		}
		if err := s.repo.InsertHeader(ctx, s.db, rec); err != nil {
			result = metrics.CommitResultPersistence
			return 0, s.persistenceFailure(StepInsertHeader, order, err)
		}
	} else {
		found, err := s.repo.UpdateHeader(ctx, s.db, rec)
		if err != nil {
			result = metrics.CommitResultPersistence
			return 0, s.persistenceFailure(StepUpdateHeader, order, err)
		}
		if !found {
			result = metrics.CommitResultPersistence
			return 0, s.persistenceFailure(StepUpdateHeader, order, domain.ErrNotFound)
		}
	}
	span.SetAttributes(attribute.String("order.number", rec.OrderNumber))

	if err := s.replaceMirror(ctx, rec.ID, rec.OrderNumber, order.CatalogLines(), now); err != nil {
		result = metrics.CommitResultPersistence
		return rec.ID, s.persistenceFailure(StepCommitMirror, order, err)
	}

	s.log.Info("order committed",
		zap.String("order_id", rec.ID.String()),
		zap.String("order_number", rec.OrderNumber),
		zap.String("status", rec.Status),
		zap.String("total", rec.Total.StringFixed(2)),
		zap.Int("lines", len(order.Lines)),
	)
	return rec.ID, nil
}

// replaceMirror swaps the normalized lines and stock reservations in one
// transaction so a failure keeps the previous mirror whole.
func (s *Service) replaceMirror(ctx context.Context, orderID snowflake.ID, reference string, lines []*domain.CatalogLine, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteLines(ctx, tx, orderID); err != nil {
			return newPersistenceError(StepDeleteLines, err)
		}
		if err := s.repo.DeleteMovements(ctx, tx, orderID); err != nil {
			return newPersistenceError(StepDeleteMovements, err)
		}
		for _, line := range lines {
			if err := s.repo.InsertLine(ctx, tx, &domain.OrderLineRecord{
				ID:          s.genID.Generate(),
				OrderID:     orderID,
				ProductID:   line.Product.ID,
				Description: line.Product.Name,
				Quantity:    line.Qty,
				UnitPrice:   line.Price,
				TotalPrice:  line.Amount(),
				CreatedAt:   now,
			}); err != nil {
				return newPersistenceError(StepInsertLines, err)
			}
		}
		for _, line := range lines {
			if err := s.repo.InsertMovement(ctx, tx, &domain.StockMovement{
				ID:           s.genID.Generate(),
				OrderID:      orderID,
				ProductID:    line.Product.ID,
				Quantity:     line.Qty,
				MovementType: domain.MovementTypeReservation,
				Reference:    reference,
				CreatedAt:    now,
			}); err != nil {
				return newPersistenceError(StepInsertMovements, err)
			}
		}
		return nil
	})
}

func (s *Service) Load(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := snowflake.ParseString(id)
	if err != nil || orderID == 0 {
		return domain.Order{}, domain.ErrNotFound
	}

	rec, err := s.repo.FindHeader(ctx, s.db, orderID)
	if err != nil {
		return domain.Order{}, newPersistenceError(StepLoadSnapshot, err)
	}
	if rec == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	order, err := rec.ToOrder()
	if err != nil {
		return domain.Order{}, newPersistenceError(StepLoadSnapshot, err)
	}
	return order, nil
}

func (s *Service) RebuildMirror(ctx context.Context, id snowflake.ID) error {
	ctx, span := s.tracer.Start(ctx, "order.rebuild_mirror")
	defer span.End()

	rec, err := s.repo.FindHeader(ctx, s.db, id)
	if err != nil {
		s.metrics.IncMirrorRebuild(false)
		return newPersistenceError(StepLoadSnapshot, err)
	}
	if rec == nil {
		return domain.ErrNotFound
	}
	order, err := rec.ToOrder()
	if err != nil {
		s.metrics.IncMirrorRebuild(false)
		return newPersistenceError(StepLoadSnapshot, err)
	}

	if err := s.replaceMirror(ctx, rec.ID, rec.OrderNumber, order.CatalogLines(), s.clock.Now().UTC()); err != nil {
		s.metrics.IncMirrorRebuild(false)
		span.RecordError(err)
		s.log.Error("mirror rebuild failed", zap.String("order_number", rec.OrderNumber), zap.Error(err))
		return err
	}
	s.metrics.IncMirrorRebuild(true)
	s.log.Info("mirror rebuilt", zap.String("order_number", rec.OrderNumber))
	return nil
}

func (s *Service) ListLines(ctx context.Context, id snowflake.ID) ([]domain.OrderLineRecord, error) {
	lines, err := s.repo.ListLines(ctx, s.db, id)
	if err != nil {
		return nil, newPersistenceError(StepLoadSnapshot, err)
	}
	return lines, nil
}

func (s *Service) ListMovements(ctx context.Context, id snowflake.ID) ([]domain.StockMovement, error) {
	movements, err := s.repo.ListMovements(ctx, s.db, id)
	if err != nil {
		return nil, newPersistenceError(StepLoadSnapshot, err)
	}
	return movements, nil
}

func (s *Service) persistenceFailure(step string, order domain.Order, err error) error {
	perr := newPersistenceError(step, err)
	s.metrics.IncCommitError(perr.Step, perr.Err)
	s.log.Error("order commit failed",
		zap.String("order_number", order.Number),
		zap.String("step", perr.Step),
		zap.String("code", perr.Code),
		zap.String("detail", perr.Detail),
		zap.String("hint", perr.Hint),
		zap.Error(perr.Err),
	)
	return perr
}
