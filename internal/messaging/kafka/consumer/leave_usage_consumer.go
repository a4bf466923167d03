package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshith-Raju/Leave-Management-System/internal/events"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const usageCounterTTL = 90 * 24 * time.Hour

// UsageCounterKey is the Redis key holding the number of approved working
// days consumed by a department in a given year.
func UsageCounterKey(departmentID string, year int) string {
	return fmt.Sprintf("leave:usage:%s:%d", departmentID, year)
}

// ConsumeLeaveStatusChanges maintains per-department leave-usage counters in
// Redis from terminal leave events. Approved days are added once per event;
// rejected events only bump an audit counter.
func ConsumeLeaveStatusChanges(
	ctx context.Context,
	reader *kafkago.Reader,
	rdb *redis.Client,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_status")
	log.Info("leave status consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave status consumer stopped")
				return
			}
			log.Error("fetch leave status message failed", zap.Error(err))
			continue
		}

		var event events.LeaveStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave status event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if err := recordUsage(ctx, rdb, event); err != nil {
			log.Error("record leave usage failed",
				zap.String("leave_id", event.LeaveID),
				zap.String("department_id", event.DepartmentID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave status message failed", zap.Error(err))
			continue
		}

		log.Info("leave usage recorded",
			zap.String("leave_id", event.LeaveID),
			zap.String("department_id", event.DepartmentID),
			zap.String("status", event.Status),
		)
	}
}

func recordUsage(ctx context.Context, rdb *redis.Client, event events.LeaveStatusChangedEvent) error {
	// Dedup key guards against redelivery after a crash between the Redis
	// write and the offset commit.
	dedupKey := fmt.Sprintf("leave:usage:seen:%s", event.LeaveID)
	fresh, err := rdb.SetNX(ctx, dedupKey, event.Status, usageCounterTTL).Result()
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	if event.Status != leave.StatusApproved {
		key := fmt.Sprintf("leave:rejected:%s:%d", event.DepartmentID, event.OccurredAt.Year())
		pipe := rdb.TxPipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, usageCounterTTL)
		_, err = pipe.Exec(ctx)
		return err
	}

	key := UsageCounterKey(event.DepartmentID, event.OccurredAt.Year())
	pipe := rdb.TxPipeline()
	pipe.IncrBy(ctx, key, int64(event.WorkingDays))
	pipe.Expire(ctx, key, usageCounterTTL)
	_, err = pipe.Exec(ctx)
	return err
}
