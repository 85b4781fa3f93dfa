//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"janani/internal/platform/kafka"
	id "janani/pkg/domain"
	audit "janani/pkg/platform/audit"
	auditpostgres "janani/pkg/platform/audit/store/postgres"
	"janani/pkg/testutil/containers"
)

const testTopic = "audit-events-test"

// TestRelayEndToEnd drives the full outbox pipeline: events appended through
// the publisher land in postgres, the worker ships them to the broker, and a
// consumer reads them back in order with published_at stamped.
func TestRelayEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := containers.NewPostgresContainer(t)
	defer func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(ctx)
	}()
	rp := containers.NewRedpandaContainer(t)
	defer func() { _ = rp.Container.Terminate(ctx) }()

	outbox := auditpostgres.New(pg.DB)
	publisher := audit.NewPublisher(outbox)
	beneficiaryID := id.BeneficiaryID(uuid.New())

	actions := []audit.AuditEvent{
		audit.EventBenefitInitialized,
		audit.EventApplicationSubmitted,
		audit.EventInstallmentPaid,
	}
	for i, action := range actions {
		require.NoError(t, publisher.Emit(ctx, audit.Event{
			BeneficiaryID: beneficiaryID,
			Action:        string(action),
			Installment:   1,
			Amount:        1000 * (i + 1),
		}))
	}

	producer, err := kafka.NewProducer(ctx, []string{rp.Broker}, testTopic)
	require.NoError(t, err)
	defer producer.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(outbox, producer, 100*time.Millisecond, logger)

	workerCtx, stopWorker := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(workerCtx)
	}()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(testTopic),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	deadline := time.Now().Add(30 * time.Second)
	for len(records) < len(actions) && time.Now().Before(deadline) {
		pollCtx, pollCancel := context.WithTimeout(ctx, 2*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		pollCancel()
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	stopWorker()
	<-done

	require.Len(t, records, len(actions))
	for i, record := range records {
		var payload struct {
			Action        string `json:"Action"`
			BeneficiaryID string `json:"BeneficiaryID"`
			Amount        int    `json:"Amount"`
		}
		require.NoError(t, json.Unmarshal(record.Value, &payload))
		assert.Equal(t, string(actions[i]), payload.Action, "events must relay in append order")
		assert.Equal(t, beneficiaryID.String(), payload.BeneficiaryID)
		assert.Equal(t, 1000*(i+1), payload.Amount)
	}

	// At-least-once bookkeeping: everything shipped is stamped, nothing is
	// fetched again.
	var unpublished int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL").Scan(&unpublished))
	assert.Zero(t, unpublished)

	entries, err := outbox.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
