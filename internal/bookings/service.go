package bookings

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var bookingsTracer = otel.Tracer("clinicassistant.internal.bookings")

// Service records confirmed bookings and serves the admin listing.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Confirm persists a finished booking and returns it with its id and timestamp.
func (s *Service) Confirm(ctx context.Context, b Booking) (Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.name", b.ClinicName),
		attribute.String("booking.service", b.Service),
		attribute.String("booking.date", b.Date),
	)

	saved, err := s.repo.Save(ctx, b)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save booking")
		return Booking{}, err
	}
	span.SetAttributes(attribute.Int64("booking.id", saved.ID))
	s.logger.Info("booking confirmed",
		"booking_id", saved.ID,
		"customer_id", saved.CustomerID,
		"clinic", saved.ClinicName,
		"service", saved.Service,
	)
	return saved, nil
}

// List returns bookings newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.list")
	defer span.End()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("bookings.count", len(out)))
	return out, nil
}
