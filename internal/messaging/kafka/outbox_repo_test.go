package kafka_test

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
)

func setupOutboxRepoTest(t *testing.T) (kafka.OutboxRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	return kafka.NewOutboxRepository(db), mock, func() { db.Close() }
}

// ddlColumns extracts the column names declared by OutboxTableDDL.
func ddlColumns(t *testing.T) map[string]bool {
	t.Helper()

	body := kafka.OutboxTableDDL
	open := strings.Index(body, "(")
	closing := strings.LastIndex(body, ")")
	assert.Greater(t, closing, open)

	cols := map[string]bool{}
	for _, line := range strings.Split(body[open+1:closing], "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

func TestOutboxMarkSent_TouchesOnlyDeclaredColumns(t *testing.T) {
	repo, mock, closeDB := setupOutboxRepoTest(t)
	defer closeDB()

	id := uuid.NewString()
	cols := ddlColumns(t)

	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(id, kafka.OutboxStatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkSent(context.Background(), id)

	assert.NoError(t, err)
	for _, col := range []string{"status", "processed_at", "last_error", "updated_at"} {
		assert.True(t, cols[col], "MarkSent writes %s but the DDL does not declare it", col)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkFailed_TouchesOnlyDeclaredColumns(t *testing.T) {
	repo, mock, closeDB := setupOutboxRepoTest(t)
	defer closeDB()

	id := uuid.NewString()
	cols := ddlColumns(t)

	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(id, kafka.OutboxStatusFailed, "broker unreachable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), id, "broker unreachable")

	assert.NoError(t, err)
	for _, col := range []string{"status", "retry_count", "last_error", "next_retry_at", "updated_at"} {
		assert.True(t, cols[col], "MarkFailed writes %s but the DDL does not declare it", col)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxCreate(t *testing.T) {
	t.Run("success inserts declared columns", func(t *testing.T) {
		repo, mock, closeDB := setupOutboxRepoTest(t)
		defer closeDB()

		event := kafka.OutboxEvent{
			ID:            uuid.NewString(),
			RequestID:     uuid.NewString(),
			AggregateType: "leave_request",
			AggregateID:   uuid.NewString(),
			EventType:     "leave.status_changed",
			Topic:         "lms.leave.status.v1",
			Payload:       []byte(`{"status":"APPROVED"}`),
			Status:        kafka.OutboxStatusPending,
		}

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(
				event.ID, event.RequestID, event.AggregateType,
				event.AggregateID, event.EventType, event.Topic,
				event.Payload, event.Status,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), event)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative missing payload", func(t *testing.T) {
		repo, mock, closeDB := setupOutboxRepoTest(t)
		defer closeDB()

		err := repo.Create(context.Background(), kafka.OutboxEvent{
			ID:     uuid.NewString(),
			Topic:  "lms.leave.status.v1",
			Status: kafka.OutboxStatusPending,
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxListPending(t *testing.T) {
	repo, mock, closeDB := setupOutboxRepoTest(t)
	defer closeDB()

	id := uuid.NewString()
	rows := sqlmock.NewRows([]string{
		"id", "aggregate_type", "aggregate_id", "event_type",
		"topic", "payload", "status", "retry_count", "next_retry_at",
	}).AddRow(id, "leave_request", uuid.NewString(), "leave.status_changed",
		"lms.leave.status.v1", []byte(`{}`), kafka.OutboxStatusPending, 0, time.Now())

	mock.ExpectQuery("FROM outbox_events").
		WithArgs(kafka.OutboxStatusPending, kafka.OutboxStatusFailed, 50).
		WillReturnRows(rows)

	events, err := repo.ListPending(context.Background(), 50)

	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
