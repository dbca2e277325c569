// Package mongodoc provides the Driver variant that executes compiled
// query.MongoOperation values against a MongoDB database instead of SQL
// text, per spec.md's §4.2 MongoDB variant.
package mongodoc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/query"
)

// Config configures a Driver instance.
type Config struct {
	URI      string
	Database string
	Logger   *zap.Logger
}

// Driver implements driver.Driver against a MongoDB database. Its SQL
// Query/Execute methods always fail; callers dispatch document operations
// through ExecuteDocument instead.
type Driver struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger

	draining bool
}

// New connects to MongoDB and returns a ready Driver.
func New(ctx context.Context, cfg Config) (*Driver, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("driver/mongodoc: connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("driver/mongodoc: ping failed: %w", err)
	}
	return &Driver{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

// Query always fails: the SQL surface is not supported by the document
// backend, per spec.
func (d *Driver) Query(context.Context, string, []any) (driver.QueryResult, error) {
	return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: %w: use ExecuteDocument", errs.ErrUnsupportedOperation)
}

// Execute always fails, for the same reason as Query.
func (d *Driver) Execute(context.Context, string, []any) (driver.ExecResult, error) {
	return driver.ExecResult{}, fmt.Errorf("driver/mongodoc: %w: use ExecuteDocument", errs.ErrUnsupportedOperation)
}

// Transaction runs fn within a MongoDB session transaction. fn receives a
// Driver-shaped client whose Query/Execute still fail; callers run
// ExecuteDocument with the ctx passed to fn, which carries the session.
func (d *Driver) Transaction(ctx context.Context, fn func(ctx context.Context, c driver.Client) error) error {
	session, err := d.client.StartSession()
	if err != nil {
		return fmt.Errorf("driver/mongodoc: starting session failed: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		return nil, fn(sessCtx, d)
	})
	if err != nil {
		return fmt.Errorf("driver/mongodoc: transaction failed: %w", err)
	}
	return nil
}

func (d *Driver) Close() error {
	return d.client.Disconnect(context.Background())
}

func (d *Driver) HealthCheck(ctx context.Context) driver.HealthStatus {
	start := time.Now()
	err := d.client.Ping(ctx, nil)
	return driver.HealthStatus{
		Healthy:       err == nil,
		LatencyMs:     time.Since(start).Milliseconds(),
		LastCheckedAt: time.Now(),
		Error:         err,
	}
}

func (d *Driver) IsHealthy() bool {
	return d.HealthCheck(context.Background()).Healthy
}

func (d *Driver) StartHealthChecks(ctx context.Context, interval time.Duration, onChange func(healthy bool)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				healthy := d.HealthCheck(ctx).Healthy
				if healthy != last {
					last = healthy
					if onChange != nil {
						onChange(healthy)
					}
				}
			}
		}
	}()
}

func (d *Driver) StopHealthChecks() {}

// GetPoolStats returns a zero PoolStats: the native driver pools
// internally and none of its counts are surfaced here.
func (d *Driver) GetPoolStats() driver.PoolStats { return driver.PoolStats{} }

func (d *Driver) GetActiveQueryCount() int { return 0 }
func (d *Driver) IsDraining() bool         { return d.draining }

func (d *Driver) DrainAndClose(ctx context.Context, opts driver.DrainOptions) (driver.DrainResult, error) {
	start := time.Now()
	d.draining = true
	if opts.OnProgress != nil {
		opts.OnProgress(driver.DrainPhaseDraining, 0)
		opts.OnProgress(driver.DrainPhaseClosing, 0)
	}
	err := d.Close()
	if opts.OnProgress != nil {
		opts.OnProgress(driver.DrainPhaseComplete, 0)
	}
	return driver.DrainResult{Elapsed: time.Since(start)}, err
}

// ExecuteDocument dispatches a compiled query.MongoOperation to the
// appropriate mongo.Collection method and normalizes the result into the
// shared {rows, rowCount} shape.
func (d *Driver) ExecuteDocument(ctx context.Context, op *query.MongoOperation) (driver.QueryResult, error) {
	coll := d.db.Collection(op.Collection)

	switch op.Type {
	case query.MongoFind:
		return d.find(ctx, coll, op)
	case query.MongoAggregate:
		return d.aggregate(ctx, coll, op)
	case query.MongoInsertOne:
		res, err := coll.InsertOne(ctx, op.Documents[0])
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: insertOne failed: %w", err)
		}
		return driver.QueryResult{Rows: []driver.Row{{"_id": res.InsertedID}}, RowCount: 1}, nil
	case query.MongoInsertMany:
		docs := make([]any, len(op.Documents))
		for i, doc := range op.Documents {
			docs[i] = doc
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: insertMany failed: %w", err)
		}
		return driver.QueryResult{RowCount: len(res.InsertedIDs)}, nil
	case query.MongoUpdateMany:
		res, err := coll.UpdateMany(ctx, bson.M(op.Filter), bson.M(op.Update))
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: updateMany failed: %w", err)
		}
		return driver.QueryResult{RowCount: int(res.ModifiedCount)}, nil
	case query.MongoUpdateOne:
		res, err := coll.UpdateOne(ctx, bson.M(op.Filter), bson.M(op.Update))
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: updateOne failed: %w", err)
		}
		return driver.QueryResult{RowCount: int(res.ModifiedCount)}, nil
	case query.MongoDeleteMany:
		res, err := coll.DeleteMany(ctx, bson.M(op.Filter))
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: deleteMany failed: %w", err)
		}
		return driver.QueryResult{RowCount: int(res.DeletedCount)}, nil
	case query.MongoDeleteOne:
		res, err := coll.DeleteOne(ctx, bson.M(op.Filter))
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: deleteOne failed: %w", err)
		}
		return driver.QueryResult{RowCount: int(res.DeletedCount)}, nil
	case query.MongoFindOneAndUpdate:
		return d.findOneAndUpdate(ctx, coll, op)
	case query.MongoFindOneAndDelete:
		return d.findOneAndDelete(ctx, coll, op)
	case query.MongoCountDocuments:
		n, err := coll.CountDocuments(ctx, bson.M(op.Filter))
		if err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: countDocuments failed: %w", err)
		}
		return driver.QueryResult{RowCount: int(n)}, nil
	default:
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: %w: operation %q", errs.ErrUnsupportedOperation, op.Type)
	}
}

func (d *Driver) find(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation) (driver.QueryResult, error) {
	opts := options.Find()
	if op.Sort != nil {
		opts.SetSort(bson.M(toAnyMap(op.Sort)))
	}
	if op.Skip != nil {
		opts.SetSkip(*op.Skip)
	}
	if op.Limit != nil {
		opts.SetLimit(*op.Limit)
	}
	if op.Projection != nil {
		opts.SetProjection(bson.M(toAnyMap(op.Projection)))
	}

	cursor, err := coll.Find(ctx, bson.M(op.Filter), opts)
	if err != nil {
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []driver.Row
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: decode failed: %w", err)
		}
		rows = append(rows, driver.Row(doc))
	}
	if err := cursor.Err(); err != nil {
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: cursor iteration failed: %w", err)
	}
	return driver.QueryResult{Rows: rows, RowCount: len(rows)}, nil
}

func (d *Driver) aggregate(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation) (driver.QueryResult, error) {
	pipeline := make(bson.A, len(op.Pipeline))
	for i, stage := range op.Pipeline {
		pipeline[i] = bson.M(stage)
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []driver.Row
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: decode failed: %w", err)
		}
		rows = append(rows, driver.Row(doc))
	}
	if err := cursor.Err(); err != nil {
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: cursor iteration failed: %w", err)
	}
	return driver.QueryResult{Rows: rows, RowCount: len(rows)}, nil
}

// findOneAndUpdate returns the document as it looked after the update,
// matching RETURNING's "give back the row that changed" semantics on the
// SQL side. A no-match is not an error: it reports zero rows affected.
func (d *Driver) findOneAndUpdate(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation) (driver.QueryResult, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if op.Projection != nil {
		opts.SetProjection(bson.M(toAnyMap(op.Projection)))
	}

	var doc bson.M
	err := coll.FindOneAndUpdate(ctx, bson.M(op.Filter), bson.M(op.Update), opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return driver.QueryResult{}, nil
		}
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: findOneAndUpdate failed: %w", err)
	}
	return driver.QueryResult{Rows: []driver.Row{driver.Row(doc)}, RowCount: 1}, nil
}

// findOneAndDelete returns the deleted document, matching RETURNING's
// semantics on a DELETE. A no-match is not an error: it reports zero rows
// affected.
func (d *Driver) findOneAndDelete(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation) (driver.QueryResult, error) {
	opts := options.FindOneAndDelete()
	if op.Projection != nil {
		opts.SetProjection(bson.M(toAnyMap(op.Projection)))
	}

	var doc bson.M
	err := coll.FindOneAndDelete(ctx, bson.M(op.Filter), opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return driver.QueryResult{}, nil
		}
		return driver.QueryResult{}, fmt.Errorf("driver/mongodoc: findOneAndDelete failed: %w", err)
	}
	return driver.QueryResult{Rows: []driver.Row{driver.Row(doc)}, RowCount: 1}, nil
}

func toAnyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
