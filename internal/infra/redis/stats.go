package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/requester/internal/scheduler"
)

const defaultKeyPrefix = "requester:stats"

// OutcomeStats counts attempt outcomes in Redis hashes:
//
//	<prefix>:total                 cumulative, never expires
//	<prefix>:minute:<yyyymmddhhmm> per minute
//	<prefix>:run:<run id>          per run
//
// Fields are outcome names ("success", "transient", ...) plus
// "terminal:<outcome>" for final outcomes. A nil *OutcomeStats records nothing.
type OutcomeStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewOutcomeStats creates a stats sink on client.
func NewOutcomeStats(client *Client, cfg Config) *OutcomeStats {
	prefix := strings.Trim(cfg.KeyPrefix, ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &OutcomeStats{rdb: client.rdb, prefix: prefix, ttl: ttl}
}

func (s *OutcomeStats) totalKey() string {
	return s.prefix + ":total"
}

func (s *OutcomeStats) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func (s *OutcomeStats) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, runID)
}

func outcomeFields(o scheduler.Outcome) []string {
	fields := []string{o.Outcome}
	if o.Terminal {
		fields = append(fields, "terminal:"+o.Outcome)
	}
	return fields
}

// Record implements scheduler.OutcomeSink.
func (s *OutcomeStats) Record(ctx context.Context, o scheduler.Outcome) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := o.At
	if at.IsZero() {
		at = time.Now()
	}

	pipe := s.rdb.Pipeline()
	for _, field := range outcomeFields(o) {
		pipe.HIncrBy(ctx, s.totalKey(), field, 1)
		pipe.HIncrBy(ctx, s.minuteKey(at), field, 1)
		if o.RunID != "" {
			pipe.HIncrBy(ctx, s.runKey(o.RunID), field, 1)
		}
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, s.minuteKey(at), s.ttl)
		if o.RunID != "" {
			pipe.Expire(ctx, s.runKey(o.RunID), s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// RunTotals returns the counters recorded for a run.
func (s *OutcomeStats) RunTotals(ctx context.Context, runID string) (map[string]int64, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}

	raw, err := s.rdb.HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}

	totals := make(map[string]int64, len(raw))
	for field, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter %s=%q: %w", field, val, err)
		}
		totals[field] = n
	}
	return totals, nil
}
