package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("record already exists")
)

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Projects() ProjectRepository
	Drafts() DraftRepository
	Tickets() TicketRepository
	Events() TicketEventRepository
	Reopens() ReopenRepository
	Comments() CommentRepository
	Attachments() AttachmentRepository
	Knowledge() KnowledgeRepository
}

// Store exposes repositories outside a transaction and runs units of work.
// fn must only use the Repositories it is given; returning an error rolls the
// unit back.
type Store interface {
	Repositories
	RunInTx(ctx context.Context, fn func(tx Repositories) error) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepositories struct {
	users       UserRepository
	projects    ProjectRepository
	drafts      DraftRepository
	tickets     TicketRepository
	events      TicketEventRepository
	reopens     ReopenRepository
	comments    CommentRepository
	attachments AttachmentRepository
	knowledge   KnowledgeRepository
}

func newPgRepositories(q querier) *pgRepositories {
	return &pgRepositories{
		users:       &userRepository{q: q},
		projects:    &projectRepository{q: q},
		drafts:      &draftRepository{q: q},
		tickets:     &ticketRepository{q: q},
		events:      &ticketEventRepository{q: q},
		reopens:     &reopenRepository{q: q},
		comments:    &commentRepository{q: q},
		attachments: &attachmentRepository{q: q},
		knowledge:   &knowledgeRepository{q: q},
	}
}

func (r *pgRepositories) Users() UserRepository             { return r.users }
func (r *pgRepositories) Projects() ProjectRepository       { return r.projects }
func (r *pgRepositories) Drafts() DraftRepository           { return r.drafts }
func (r *pgRepositories) Tickets() TicketRepository         { return r.tickets }
func (r *pgRepositories) Events() TicketEventRepository     { return r.events }
func (r *pgRepositories) Reopens() ReopenRepository         { return r.reopens }
func (r *pgRepositories) Comments() CommentRepository       { return r.comments }
func (r *pgRepositories) Attachments() AttachmentRepository { return r.attachments }
func (r *pgRepositories) Knowledge() KnowledgeRepository    { return r.knowledge }

// PostgresStore is the pgx backed Store.
type PostgresStore struct {
	*pgRepositories
	pool *pgxpool.Pool
}

// NewPostgresStore builds the store over an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgRepositories: newPgRepositories(pool), pool: pool}
}

// RunInTx runs fn inside a read-committed transaction. Row locks taken with
// GetForUpdate are held until fn returns.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPgRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrDuplicate
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
