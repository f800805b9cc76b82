package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dotmac/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabaseName = "audit"
	DefaultTimeout      = 3 * time.Second
)

type NewMongoOpts struct {
	Database    *mongo.Database
	Now         func() time.Time
	ServiceLogs chan<- common.ServiceLog
}

// NewMongo returns a Logger writing one collection per entity type
func NewMongo(opts NewMongoOpts) (*Mongo, error) {
	if opts.Database == nil {
		return nil, ErrorDatabaseUndefined
	}
	output := &Mongo{Db: opts.Database, now: opts.Now, serviceLogs: opts.ServiceLogs}
	if output.now == nil {
		output.now = time.Now
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

type Mongo struct {
	Db *mongo.Database

	now         func() time.Time
	serviceLogs chan<- common.ServiceLog
}

func (c *Mongo) Log(ctx context.Context, logEntry LogEntry) error {
	if err := logEntry.Validate(); err != nil {
		return err
	}
	insertCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	if logEntry.Timestamp.IsZero() {
		logEntry.Timestamp = c.now()
	}
	res, err := c.Db.Collection(string(logEntry.EntityType)).InsertOne(insertCtx, logEntry)
	if err != nil {
		if logEntry.Id != "" && mongo.IsDuplicateKeyError(err) {
			c.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "audit log[%s] already recorded", logEntry.Id)
			return nil
		}
		c.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to insert audit log: %s", err)
		return fmt.Errorf("audit log insert failed: %w", err)
	}
	c.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "inserted audit log[%v]", res.InsertedID)
	return nil
}

func (c *Mongo) GetByEntity(ctx context.Context, opts GetByEntityOpts) (LogEntries, error) {
	cursor := opts.Cursor
	if cursor.IsZero() {
		cursor = c.now()
	}
	findCtx, cancelFind := context.WithTimeout(ctx, DefaultTimeout)
	defer cancelFind()
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	res, err := c.Db.Collection(string(opts.EntityType)).Find(
		findCtx,
		bson.M{"entityId": opts.EntityId, "timestamp": bson.M{"$lte": cursor}},
		findOpts,
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout[%v] on find", DefaultTimeout)
		}
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer res.Close(findCtx)

	var results LogEntries
	if err := res.All(findCtx, &results); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout[%v] on decode", DefaultTimeout)
		}
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return results, nil
}

// NewMemory returns an in-process Logger for tests and bypass mode
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now}
}

type Memory struct {
	entries LogEntries
	now     func() time.Time
	mutex   sync.RWMutex
}

func (m *Memory) Log(_ context.Context, logEntry LogEntry) error {
	if err := logEntry.Validate(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if logEntry.Id != "" {
		for _, existing := range m.entries {
			if existing.Id == logEntry.Id {
				return nil
			}
		}
	}
	if logEntry.Timestamp.IsZero() {
		logEntry.Timestamp = m.now()
	}
	m.entries = append(m.entries, logEntry)
	return nil
}

func (m *Memory) GetByEntity(_ context.Context, opts GetByEntityOpts) (LogEntries, error) {
	cursor := opts.Cursor
	if cursor.IsZero() {
		cursor = m.now()
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	results := LogEntries{}
	for _, entry := range m.entries {
		if entry.EntityId == opts.EntityId && entry.EntityType == opts.EntityType && !entry.Timestamp.After(cursor) {
			results = append(results, entry)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Timestamp.After(results[j].Timestamp) })
	if opts.Limit > 0 && int64(len(results)) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
