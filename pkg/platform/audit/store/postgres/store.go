package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "janani/pkg/domain"
	audit "janani/pkg/platform/audit"
)

// Schema is the DDL for the audit outbox. Kafka is the source of truth for
// audit events; the outbox only buffers them until the relay worker ships
// them out.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
	id             UUID PRIMARY KEY,
	beneficiary_id UUID,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audit_outbox_unpublished
	ON audit_outbox (created_at) WHERE published_at IS NULL;
`

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the relay
// worker.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event so downstream consumers can deserialize directly.
type outboxPayload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	BeneficiaryID string `json:"BeneficiaryID,omitempty"`
	Action        string `json:"Action"`
	Installment   int    `json:"Installment,omitempty"`
	Amount        int    `json:"Amount,omitempty"`
	Decision      string `json:"Decision,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	TransactionID string `json:"TransactionID,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
	ActorID       string `json:"ActorID,omitempty"`
	ActorRole     string `json:"ActorRole,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action so eventCategories stays the single
	// source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		Installment:   event.Installment,
		Amount:        event.Amount,
		Decision:      event.Decision,
		Reason:        event.Reason,
		TransactionID: event.TransactionID,
		RequestID:     event.RequestID,
		ActorID:       event.ActorID,
		ActorRole:     event.ActorRole,
	}
	var beneficiaryID *uuid.UUID
	if !event.BeneficiaryID.IsNil() {
		bid := uuid.UUID(event.BeneficiaryID)
		beneficiaryID = &bid
		payload.BeneficiaryID = bid.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, beneficiary_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		eventID, beneficiaryID, event.Action, payloadBytes, time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByBeneficiary returns outbox events for a beneficiary, oldest first.
// The outbox keeps published rows, so this doubles as a local audit trail.
func (s *Store) ListByBeneficiary(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE beneficiary_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(beneficiaryID))
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		var payload outboxPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode outbox event: %w", err)
		}
		event := audit.Event{
			Category:      audit.EventCategory(payload.Category),
			Action:        payload.Action,
			Installment:   payload.Installment,
			Amount:        payload.Amount,
			Decision:      payload.Decision,
			Reason:        payload.Reason,
			TransactionID: payload.TransactionID,
			RequestID:     payload.RequestID,
			ActorID:       payload.ActorID,
			ActorRole:     payload.ActorRole,
			BeneficiaryID: beneficiaryID,
		}
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}

// Entry is one unpublished outbox row handed to the relay worker.
type Entry struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, event_type, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given entries as shipped.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE audit_outbox
		SET published_at = $1
		WHERE id = ANY($2)
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark entries published: %w", err)
	}
	return nil
}
