package database

import (
	"context"
	"database/sql"
	"errors"
)

// SQLSession implements Session over a *sql.DB. It owns at most one
// *sql.Tx at a time and records whether it is open, so rollback can be
// a checked no-op instead of a blind call.
type SQLSession struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSQLSession wraps an open *sql.DB.
func NewSQLSession(db *sql.DB) *SQLSession {
	return &SQLSession{db: db}
}

func (s *SQLSession) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLSession) Begin(ctx context.Context) error {
	if s.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

func (s *SQLSession) Exec(ctx context.Context, query string) error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}
	_, err := s.tx.ExecContext(ctx, query)
	return err
}

// Commit finishes the open transaction. database/sql leaves a
// transaction unusable after a failed commit, so the session forgets it
// either way; a later rollback then reports nothing to roll back.
func (s *SQLSession) Commit() error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

func (s *SQLSession) Rollback() error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

func (s *SQLSession) InTx() bool {
	return s.tx != nil
}

func (s *SQLSession) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}
