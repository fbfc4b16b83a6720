// Package accountmutation runs a change of a single account inside a unit of work.
//
// The account is resolved outside of the transaction, then re-read with a lock,
// so that concurrent mutations of the same account are serialized by the store.
package accountmutation

import (
	"context"
	"errors"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
)

// Change describes what a mutation did to the locked account.
// A change without events is a no-op and is never persisted.
type Change struct {
	Events []user.Event
	// Err is returned to the caller after the change has been committed.
	Err error
}

func NoChange() Change {
	return Change{}
}

func Changed(events ...user.Event) Change {
	return Change{Events: events}
}

func (c Change) IsChanged() bool {
	return len(c.Events) > 0
}

// Mutation returning an error aborts the unit of work without writing anything.
type Mutation func(u *user.User, now time.Time) (Change, error)

type Result struct {
	User    user.User
	Changed bool
}

type Runner struct {
	log        logging.Logger
	resolver   user.IdentityResolver
	unitOfWork uow.UnitOfWork
	listeners  []user.EventListener
	now        func() time.Time
}

func New(
	log logging.Logger,
	resolver user.IdentityResolver,
	unitOfWork uow.UnitOfWork,
	now func() time.Time,
	listeners ...user.EventListener,
) *Runner {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if resolver == nil {
		panic(e.NewNilArgumentError("resolver"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	for _, l := range listeners {
		if l == nil {
			panic(e.NewNilArgumentError("listeners"))
		}
	}
	return &Runner{
		log:        log,
		resolver:   resolver,
		unitOfWork: unitOfWork,
		listeners:  listeners,
		now:        now,
	}
}

func (r *Runner) Now() time.Time {
	return r.now()
}

func (r *Runner) MutateByIdentifier(
	ctx context.Context,
	identifier string,
	mutate Mutation,
) (result Result, err error) {
	u, err := r.resolver.Resolve(ctx, identifier)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if errors.Is(err, user.ErrUserDoesNotExist) {
		r.log.Info(ctx, "User not found.", logging.Entry("identifier", identifier))
		return result, err
	}
	if err != nil {
		r.log.Error(
			ctx,
			"Could not resolve user.",
			logging.Entry("identifier", identifier),
			logging.Entry("err", err),
		)
		return result, err
	}
	return r.MutateByID(ctx, u.ID, mutate)
}

func (r *Runner) MutateByID(ctx context.Context, id user.ID, mutate Mutation) (result Result, err error) {
	uow, err := r.unitOfWork.Begin(ctx)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if err != nil {
		r.log.Error(
			ctx,
			"Could not begin unit of work.",
			logging.Entry("userId", id),
			logging.Entry("err", err),
		)
		return result, err
	}
	defer uow.Rollback(ctx)

	u, err := uow.Users().GetByIDWithLock(ctx, id)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if errors.Is(err, user.ErrUserDoesNotExist) {
		r.log.Info(ctx, "User disappeared before it could be locked.", logging.Entry("userId", id))
		return result, err
	}
	if err != nil {
		r.log.Error(
			ctx,
			"Could not lock user.",
			logging.Entry("userId", id),
			logging.Entry("err", err),
		)
		return result, err
	}

	now := r.now()
	change, err := mutate(&u, now)
	if err != nil {
		return Result{User: u}, err
	}
	if !change.IsChanged() {
		r.log.Info(ctx, "User is already in the requested state.", logging.Entry("userId", id))
		return Result{User: u}, change.Err
	}

	if err := u.Validate(); err != nil {
		r.log.Error(
			ctx,
			"Mutation left user in invalid state.",
			logging.Entry("userId", id),
			logging.Entry("err", err),
		)
		return result, err
	}
	u.UpdatedAt = now
	if err := uow.Users().Save(ctx, u); err != nil {
		r.log.Error(
			ctx,
			"Could not save user.",
			logging.Entry("userId", id),
			logging.Entry("err", err),
		)
		return result, err
	}
	if err := uow.Commit(ctx); err != nil {
		r.log.Error(
			ctx,
			"Could not commit unit of work.",
			logging.Entry("userId", id),
			logging.Entry("err", err),
		)
		return result, err
	}

	for _, event := range change.Events {
		r.log.Info(
			ctx,
			"User has been changed.",
			logging.Entry("userId", id),
			logging.Entry("username", u.Username),
			logging.Entry("event", event.Type),
			logging.Entry("role", event.Role),
		)
		r.notify(ctx, event)
	}
	return Result{User: u, Changed: true}, change.Err
}

func (r *Runner) notify(ctx context.Context, event user.Event) {
	for _, listener := range r.listeners {
		if err := listener.OnAccountEvent(ctx, event); err != nil {
			r.log.Warning(
				ctx,
				"Account event listener failed.",
				logging.Entry("event", event),
				logging.Entry("err", err),
			)
		}
	}
}
