package services

import (
	"context"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// fakeDB implements DB with per-call hooks. Unset hooks fail the query the
// way an empty database would.
type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (Result, error)
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return errRow{pgx.ErrNoRows}
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return fakeResult(0), nil
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return &fakeTx{fakeDB: f}, nil
}

// fakeTx delegates queries to an embedded fakeDB and records the outcome.
type fakeTx struct {
	*fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error { return r.err }

// rowFromValues returns a Row whose Scan copies the given values into the
// destinations in order. Types must match what the production code scans.
func rowFromValues(values ...any) Row {
	return valueRow{values: values}
}

type valueRow struct {
	values []any
}

func (r valueRow) Scan(dest ...any) error {
	return copyValues(r.values, dest)
}

// fakeRows is an in-memory Rows over pre-built value tuples.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return copyValues(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     {}

func copyValues(values []any, dest []any) error {
	for i, v := range values {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case *int:
			*d = v.(int)
		case **int:
			if v == nil {
				*d = nil
			} else {
				n := v.(int)
				*d = &n
			}
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		default:
			// uuid.UUID, models.FriendshipStatus and the like.
			assign(dest[i], v)
		}
	}
	return nil
}

func assign(dst, v any) {
	rv := reflect.ValueOf(dst).Elem()
	if v == nil {
		rv.Set(reflect.Zero(rv.Type()))
		return
	}
	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(rv.Type()) {
		rv.Set(val)
		return
	}
	if val.Type().ConvertibleTo(rv.Type()) {
		rv.Set(val.Convert(rv.Type()))
	}
}

type fakeResult int64

func (r fakeResult) RowsAffected() int64 { return int64(r) }

// fakeRedis is an in-memory RedisConn.
type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration

	getErr error
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (r *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if r.getErr != nil {
		return "", r.getErr
	}
	v, ok := r.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (r *fakeRedis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.values[key] = value
	r.ttls[key] = ttl
	return nil
}

func (r *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(r.values, k)
		delete(r.ttls, k)
	}
	return nil
}

func (r *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	r.ttls[key] = ttl
	return nil
}
