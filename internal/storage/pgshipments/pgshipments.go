package pgshipments

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Storage struct {
	db *pgxpool.Pool
}

// New connects to postgres and brings the schema up to date.
func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	if err := MigrateUp(connString); err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.Ping(ctx), "ping pg")
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// NewWithRetry keeps calling New until postgres accepts connections or maxWait elapses.
func NewWithRetry(ctx context.Context, connString string, maxWait time.Duration, log *zap.Logger) (*Storage, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (*Storage, error) {
		st, err := New(connString)
		if err != nil {
			log.Warn("postgres is not ready", zap.Error(err))
			return nil, err
		}
		return st, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(maxWait))
}
