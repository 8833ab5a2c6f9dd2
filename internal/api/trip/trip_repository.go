package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pierosc/japan-itinerary/internal/types"
)

// ErrTripNotFound is returned when a trip row does not exist or the caller
// has no access to it.
var ErrTripNotFound = errors.New("trip not found")

var _ Repository = (*PostgresTripRepo)(nil)

// Repository is the remote persistence collaborator: it stores and retrieves
// opaque snapshot payloads plus the display metadata shown on the trip list.
type Repository interface {
	SaveTrip(ctx context.Context, rec types.TripRecord, payload []byte) error
	GetTrip(ctx context.Context, tripID, userID string) (*types.TripRecord, []byte, error)
	ListTrips(ctx context.Context, userID string) ([]types.TripRecord, error)
	DeleteTrip(ctx context.Context, tripID, ownerID string) error
	ShareTrip(ctx context.Context, tripID, ownerID, userID string) error
	UnshareTrip(ctx context.Context, tripID, ownerID, userID string) error
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresTripRepo struct {
	logger *slog.Logger
	pgpool DB
}

func NewPostgresTripRepo(pgpool DB, logger *slog.Logger) *PostgresTripRepo {
	return &PostgresTripRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// SaveTrip upserts the trip row keyed by trip id. Only the owner may
// overwrite an existing row.
func (r *PostgresTripRepo) SaveTrip(ctx context.Context, rec types.TripRecord, payload []byte) error {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "SaveTrip", trace.WithAttributes(
		attribute.String("trip.id", rec.TripID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SaveTrip"), slog.String("tripID", rec.TripID))

	tag, err := r.pgpool.Exec(ctx, `
        INSERT INTO trip_data (trip_id, owner_id, title, destination, cover_url, data, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
        ON CONFLICT (trip_id) DO UPDATE
            SET title = EXCLUDED.title,
                destination = EXCLUDED.destination,
                cover_url = EXCLUDED.cover_url,
                data = EXCLUDED.data,
                updated_at = now()
            WHERE trip_data.owner_id = EXCLUDED.owner_id`,
		rec.TripID, rec.OwnerID, rec.Title, rec.Destination, rec.CoverURL, payload)
	if err != nil {
		l.ErrorContext(ctx, "Failed to upsert trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert trip")
		return fmt.Errorf("failed to save trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The row exists but belongs to someone else.
		span.SetStatus(codes.Error, "Trip owned by another user")
		return fmt.Errorf("saving trip %s: %w", rec.TripID, ErrTripNotFound)
	}

	l.InfoContext(ctx, "Trip saved", slog.Int("payload_bytes", len(payload)))
	span.SetStatus(codes.Ok, "Trip saved")
	return nil
}

// GetTrip returns the metadata and snapshot payload for a trip the user owns
// or that was shared with them.
func (r *PostgresTripRepo) GetTrip(ctx context.Context, tripID, userID string) (*types.TripRecord, []byte, error) {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "GetTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	var rec types.TripRecord
	var payload []byte
	rec.TripID = tripID
	err := r.pgpool.QueryRow(ctx, `
        SELECT owner_id, title, destination, cover_url, shared_with, data, updated_at
        FROM trip_data
        WHERE trip_id = $1 AND (owner_id = $2 OR $2 = ANY(shared_with))`,
		tripID, userID).
		Scan(&rec.OwnerID, &rec.Title, &rec.Destination, &rec.CoverURL, &rec.SharedWith, &payload, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Trip not found")
			return nil, nil, fmt.Errorf("fetching trip %s: %w", tripID, ErrTripNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to fetch trip", slog.String("tripID", tripID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch trip")
		return nil, nil, fmt.Errorf("failed to fetch trip: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip fetched")
	return &rec, payload, nil
}

// ListTrips returns the metadata of every trip the user owns or can see,
// newest first. Payloads are not loaded.
func (r *PostgresTripRepo) ListTrips(ctx context.Context, userID string) ([]types.TripRecord, error) {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "ListTrips")
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT trip_id, owner_id, title, destination, cover_url, shared_with, updated_at
        FROM trip_data
        WHERE owner_id = $1 OR $1 = ANY(shared_with)
        ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list trips")
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []types.TripRecord
	for rows.Next() {
		var rec types.TripRecord
		if err := rows.Scan(&rec.TripID, &rec.OwnerID, &rec.Title, &rec.Destination, &rec.CoverURL, &rec.SharedWith, &rec.UpdatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to scan trip row")
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}
		trips = append(trips, rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("failed iterating trip rows: %w", err)
	}

	span.SetAttributes(attribute.Int("trips.count", len(trips)))
	span.SetStatus(codes.Ok, "Trips listed")
	return trips, nil
}

// DeleteTrip removes the trip row. Only the owner may delete.
func (r *PostgresTripRepo) DeleteTrip(ctx context.Context, tripID, ownerID string) error {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "DeleteTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM trip_data WHERE trip_id = $1 AND owner_id = $2`, tripID, ownerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete trip", slog.String("tripID", tripID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete trip")
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Trip not found")
		return fmt.Errorf("deleting trip %s: %w", tripID, ErrTripNotFound)
	}

	span.SetStatus(codes.Ok, "Trip deleted")
	return nil
}

// ShareTrip grants userID read access to the trip. Sharing twice is a no-op.
func (r *PostgresTripRepo) ShareTrip(ctx context.Context, tripID, ownerID, userID string) error {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "ShareTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
        UPDATE trip_data
        SET shared_with = array_append(shared_with, $3)
        WHERE trip_id = $1 AND owner_id = $2 AND NOT ($3 = ANY(shared_with))`,
		tripID, ownerID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to share trip", slog.String("tripID", tripID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to share trip")
		return fmt.Errorf("failed to share trip: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip shared")
	return nil
}

// UnshareTrip revokes userID's access to the trip.
func (r *PostgresTripRepo) UnshareTrip(ctx context.Context, tripID, ownerID, userID string) error {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "UnshareTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
        UPDATE trip_data
        SET shared_with = array_remove(shared_with, $3)
        WHERE trip_id = $1 AND owner_id = $2`,
		tripID, ownerID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to unshare trip", slog.String("tripID", tripID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unshare trip")
		return fmt.Errorf("failed to unshare trip: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip unshared")
	return nil
}
