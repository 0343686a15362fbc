package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/propstead/propstead/internal/domain"
)

const tracerName = "github.com/propstead/propstead/internal/adapter/otel"

// TracingRepository wraps a domain.EntityRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.EntityRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.EntityRepository.
var _ domain.EntityRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.EntityRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, e domain.Entity) error {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.Create",
		trace.WithAttributes(
			attribute.String("entity.id", e.ID),
			attribute.String("entity.domain", string(e.Domain)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, d domain.Domain, id string) (domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.GetByID",
		trace.WithAttributes(
			attribute.String("entity.id", id),
			attribute.String("entity.domain", string(d)),
		),
	)
	defer span.End()

	e, err := r.next.GetByID(ctx, d, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return e, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Domain != nil {
		span.SetAttributes(attribute.String("filter.domain", string(*filter.Domain)))
	}
	if filter.State != nil {
		span.SetAttributes(attribute.String("filter.state", string(*filter.State)))
	}
	if filter.Overdue != nil {
		span.SetAttributes(attribute.Bool("filter.overdue", *filter.Overdue))
	}

	entities, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(entities)))
	}
	return entities, err
}

func (r *TracingRepository) UpdateAttrs(ctx context.Context, d domain.Domain, id string, attrs map[string]string) (domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.UpdateAttrs",
		trace.WithAttributes(
			attribute.String("entity.id", id),
			attribute.String("entity.domain", string(d)),
			attribute.Int("attrs.count", len(attrs)),
		),
	)
	defer span.End()

	e, err := r.next.UpdateAttrs(ctx, d, id, attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return e, err
}

func (r *TracingRepository) UpdateState(ctx context.Context, e domain.Entity, expected domain.State) error {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.UpdateState",
		trace.WithAttributes(
			attribute.String("entity.id", e.ID),
			attribute.String("entity.domain", string(e.Domain)),
			attribute.String("entity.state", string(e.State)),
			attribute.String("entity.expected_state", string(expected)),
		),
	)
	defer span.End()

	err := r.next.UpdateState(ctx, e, expected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.ListOverdue")
	defer span.End()

	entities, err := r.next.ListOverdue(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(entities)))
	}
	return entities, err
}

func (r *TracingRepository) MarkOverdue(ctx context.Context, d domain.Domain, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.MarkOverdue",
		trace.WithAttributes(
			attribute.String("entity.id", id),
			attribute.String("entity.domain", string(d)),
		),
	)
	defer span.End()

	won, err := r.next.MarkOverdue(ctx, d, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("result.flagged", won))
	}
	return won, err
}
