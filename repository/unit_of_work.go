package repository

import (
	"context"
	"errors"
	"fmt"

	"enip/database"
	"enip/events"
	"enip/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	ingestRunRepo    service.IngestRunRepository
	resultRepo       service.ResultRepository
	callRepo         service.CallRepository
	commentRepo      service.CommentRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.ingestRunRepo = newIngestRunRepositoryWithTx(tx)
	u.resultRepo = newResultRepositoryWithTx(tx)
	u.callRepo = newCallRepositoryWithTx(tx)
	u.commentRepo = newCommentRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	// Events only leave the unit of work once the data they describe is visible
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction. Safe to defer after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) IngestRunRepository() service.IngestRunRepository {
	if u.ingestRunRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ingestRunRepo
}

func (u *unitOfWork) ResultRepository() service.ResultRepository {
	if u.resultRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.resultRepo
}

func (u *unitOfWork) CallRepository() service.CallRepository {
	if u.callRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.callRepo
}

func (u *unitOfWork) CommentRepository() service.CommentRepository {
	if u.commentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.commentRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
