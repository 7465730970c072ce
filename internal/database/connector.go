package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sqlrun/sqlrun/internal/logging"
)

// ErrConnectExhausted is returned once every connection attempt has
// failed. The caller must treat the whole run as unable to proceed.
var ErrConnectExhausted = errors.New("all connection attempts failed")

const (
	DefaultAttempts = 5
	DefaultDelay    = 3 * time.Second
)

// RetryConnector opens sessions with bounded retry and a fixed delay
// between attempts. Recoverable failures (server not reachable, not
// ready) are retried; malformed parameters abort immediately.
type RetryConnector struct {
	Driver     string
	ConnString string
	Attempts   int
	Delay      time.Duration
	Sink       logging.Sink
}

// NewRetryConnector builds a connector with the default retry policy.
func NewRetryConnector(driver, connString string, sink logging.Sink) *RetryConnector {
	return &RetryConnector{
		Driver:     driver,
		ConnString: connString,
		Attempts:   DefaultAttempts,
		Delay:      DefaultDelay,
		Sink:       sink,
	}
}

// Connect attempts to open a session up to Attempts times, sleeping
// Delay between attempts. The sleep honors context cancellation.
func (c *RetryConnector) Connect(ctx context.Context) (Session, error) {
	name, err := SQLDriverName(c.Driver)
	if err != nil {
		c.Sink.Critical("unusable connection parameters", logging.F("error", err.Error()))
		return nil, err
	}

	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.Sink.Info("attempting database connection",
			logging.F("attempt", attempt), logging.F("attempts", attempts))

		db, err := sql.Open(name, c.ConnString)
		if err != nil {
			// sql.Open only fails on malformed parameters; retrying
			// cannot help.
			c.Sink.Critical("unusable connection parameters", logging.F("error", err.Error()))
			return nil, fmt.Errorf("failed to open connection: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			c.Sink.Info("database connection established")
			return NewSQLSession(db), nil
		}
		_ = db.Close()

		c.Sink.Warn("connection attempt failed",
			logging.F("attempt", attempt), logging.F("error", err.Error()))
		if attempt < attempts {
			c.Sink.Info("retrying connection", logging.F("delay", c.Delay.String()))
			select {
			case <-time.After(c.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	c.Sink.Critical("maximum connection attempts reached", logging.F("attempts", attempts))
	return nil, ErrConnectExhausted
}

// Ensure returns sess unchanged when it is non-nil and still answers a
// ping; otherwise it closes the old session and connects afresh.
// Reconnection never resumes a lost transaction: anything uncommitted
// on the old connection is gone.
func Ensure(ctx context.Context, connector Connector, sess Session, sink logging.Sink) (Session, error) {
	if sess != nil {
		if err := sess.Ping(ctx); err == nil {
			return sess, nil
		}
		_ = sess.Close()
	}

	sink.Warn("connection lost or not established, reconnecting")
	newSess, err := connector.Connect(ctx)
	if err != nil {
		sink.Critical("unable to establish database connection, halting")
		return nil, err
	}
	return newSess, nil
}
