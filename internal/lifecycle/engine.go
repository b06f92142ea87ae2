// Package lifecycle owns the chore state machine. Every status edge runs
// through one table-driven contract: load, per-edge role predicate, status
// guard, atomic apply, then detached side effects that cannot fail the
// transition.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/notify"
	"github.com/dukerupert/chorehub/internal/store"
	"github.com/dukerupert/chorehub/internal/tasks"
	"github.com/dukerupert/chorehub/internal/ws"
)

// PayoutCreator is the payout coordinator's entry point for the detached
// post-completion attempt.
type PayoutCreator interface {
	CreatePayout(ctx context.Context, choreID int64) (*model.WorkerPayout, error)
}

type Engine struct {
	db            *sql.DB
	chores        *store.ChoreStore
	apps          *store.ApplicationStore
	users         *store.UserStore
	cancellations *store.CancellationStore
	disputes      *store.DisputeStore
	payouts       PayoutCreator
	sink          notify.Sink
	runner        *tasks.Runner
	hub           *ws.Hub
	logger        *slog.Logger
}

func NewEngine(
	db *sql.DB,
	chores *store.ChoreStore,
	apps *store.ApplicationStore,
	users *store.UserStore,
	cancellations *store.CancellationStore,
	disputes *store.DisputeStore,
	payouts PayoutCreator,
	sink notify.Sink,
	runner *tasks.Runner,
	hub *ws.Hub,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:            db,
		chores:        chores,
		apps:          apps,
		users:         users,
		cancellations: cancellations,
		disputes:      disputes,
		payouts:       payouts,
		sink:          sink,
		runner:        runner,
		hub:           hub,
		logger:        logger,
	}
}

// actorRule is the role predicate attached to a transition edge.
type actorRule int

const (
	actorOwner actorRule = iota
	actorAssignee
)

const (
	actionPublish       = "publish"
	actionAssign        = "assign"
	actionStart         = "start"
	actionComplete      = "complete"
	actionDispute       = "dispute"
	actionCancelDirect  = "cancel"
	actionCancelRequest = "cancel_request"
)

type rule struct {
	from  []model.ChoreStatus
	actor actorRule
}

// transitions is the single source of truth for who may move a chore along
// which edge, and from which statuses. Handlers never re-check any of this.
var transitions = map[string]rule{
	actionPublish:  {from: []model.ChoreStatus{model.ChoreDraft}, actor: actorOwner},
	actionAssign:   {from: []model.ChoreStatus{model.ChorePublished}, actor: actorOwner},
	actionStart:    {from: []model.ChoreStatus{model.ChoreFunded}, actor: actorAssignee},
	actionComplete: {from: []model.ChoreStatus{model.ChoreInProgress}, actor: actorAssignee},
	actionDispute: {
		from:  []model.ChoreStatus{model.ChoreFunded, model.ChoreInProgress, model.ChoreCompleted},
		actor: actorOwner,
	},
	// Customers may cancel directly only before work starts.
	actionCancelDirect: {
		from:  []model.ChoreStatus{model.ChoreDraft, model.ChorePublished, model.ChoreAssigned, model.ChoreFunded},
		actor: actorOwner,
	},
	// Workers request cancellation before work starts; the owner resolves it.
	actionCancelRequest: {
		from:  []model.ChoreStatus{model.ChoreAssigned, model.ChoreFunded},
		actor: actorAssignee,
	},
}

// authorize enforces the role predicate and status guard for an edge. The
// role check runs first so a forbidden caller learns nothing about status.
func authorize(action string, chore *model.Chore, actorID int64) error {
	r, ok := transitions[action]
	if !ok {
		return fmt.Errorf("unknown transition %q", action)
	}

	switch r.actor {
	case actorOwner:
		if chore.CreatedBy != actorID {
			return apperr.NotOwner()
		}
	case actorAssignee:
		if chore.AssignedWorkerID == nil || *chore.AssignedWorkerID != actorID {
			return apperr.NotAssignee()
		}
	}

	for _, from := range r.from {
		if chore.Status == from {
			return nil
		}
	}
	return apperr.InvalidTransition(expectedStatuses(r.from), string(chore.Status))
}

func expectedStatuses(from []model.ChoreStatus) string {
	parts := make([]string, len(from))
	for i, s := range from {
		parts[i] = string(s)
	}
	return strings.Join(parts, "|")
}

// loadChore fetches a chore or returns NotFound.
func (e *Engine) loadChore(id int64) (*model.Chore, error) {
	chore, err := e.chores.GetByID(id)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, apperr.NotFound("chore")
	}
	return chore, nil
}

// CreateChore creates a chore for the customer, optionally published
// immediately.
func (e *Engine) CreateChore(ctx context.Context, actorID int64, title, description string, budget int64, publish bool) (*model.Chore, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if budget <= 0 {
		return nil, apperr.Validation("budget must be positive")
	}

	status := model.ChoreDraft
	if publish {
		status = model.ChorePublished
	}
	chore, err := e.chores.Create(title, description, budget, actorID, status)
	if err != nil {
		return nil, err
	}
	e.broadcast(chore.ID, chore.Status)
	return chore, nil
}

// PublishChore opens a draft chore for bidding.
func (e *Engine) PublishChore(ctx context.Context, choreID, actorID int64) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionPublish, chore, actorID); err != nil {
		return nil, err
	}

	ok, err := e.chores.MarkPublished(e.db, choreID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionPublish)
	}

	e.broadcast(choreID, model.ChorePublished)
	return e.chores.GetByID(choreID)
}

// AssignWorker assigns a bidding worker to a published chore. The chore
// update, the accepted application, and the sibling rejections commit in one
// transaction so an assigned chore always has exactly one accepted bid.
func (e *Engine) AssignWorker(ctx context.Context, choreID, actorID, workerID int64) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionAssign, chore, actorID); err != nil {
		return nil, err
	}

	app, err := e.apps.GetByChoreWorker(choreID, workerID)
	if err != nil {
		return nil, err
	}
	if app == nil || app.Status != model.ApplicationPending {
		return nil, apperr.Validation("worker has no pending application for this chore")
	}

	worker, err := e.users.GetByID(workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, apperr.NotFound("worker")
	}
	if worker.PayoutDestination == "" {
		return nil, apperr.Validation("worker has no payout destination configured")
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := e.chores.MarkAssigned(tx, choreID, workerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionAssign)
	}
	if err := e.apps.AcceptAndReject(tx, choreID, workerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}

	e.notifyUser(workerID, "chore_assigned", map[string]any{"chore_id": choreID})
	e.broadcast(choreID, model.ChoreAssigned)
	return e.chores.GetByID(choreID)
}

// StartWork moves a funded chore into progress.
func (e *Engine) StartWork(ctx context.Context, choreID, actorID int64) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionStart, chore, actorID); err != nil {
		return nil, err
	}
	if chore.PaymentStatus != model.PaymentFunded {
		return nil, apperr.Validation("escrow is not funded")
	}

	ok, err := e.chores.MarkStarted(e.db, choreID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionStart)
	}

	e.notifyUser(chore.CreatedBy, "work_started", map[string]any{"chore_id": choreID})
	e.broadcast(choreID, model.ChoreInProgress)
	return e.chores.GetByID(choreID)
}

// CompleteChore marks work done. The payout attempt runs detached: its
// failure is logged and retryable, never surfaced to the worker's call.
func (e *Engine) CompleteChore(ctx context.Context, choreID, actorID int64) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionComplete, chore, actorID); err != nil {
		return nil, err
	}

	ok, err := e.chores.MarkCompleted(e.db, choreID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionComplete)
	}

	e.attemptPayout(choreID)
	e.notifyUser(chore.CreatedBy, "chore_completed", map[string]any{"chore_id": choreID})
	e.broadcast(choreID, model.ChoreCompleted)
	return e.chores.GetByID(choreID)
}

// EditInput carries the optional fields of an edit; nil means unchanged.
type EditInput struct {
	Title       *string
	Description *string
	Budget      *int64
}

// EditChore applies an edit within the status-dependent window: every field
// while draft or published, title and description while assigned, description
// only while in progress, nothing after.
func (e *Engine) EditChore(ctx context.Context, choreID, actorID int64, in EditInput) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatedBy != actorID {
		return nil, apperr.NotOwner()
	}

	switch chore.Status {
	case model.ChoreDraft, model.ChorePublished:
		// full edit
	case model.ChoreAssigned:
		if in.Budget != nil {
			return nil, apperr.InvalidTransition("draft|published", string(chore.Status))
		}
	case model.ChoreInProgress:
		if in.Budget != nil || in.Title != nil {
			return nil, apperr.InvalidTransition("draft|published|assigned", string(chore.Status))
		}
	default:
		return nil, apperr.InvalidTransition("draft|published|assigned|in_progress", string(chore.Status))
	}

	title, description, budget := chore.Title, chore.Description, chore.Budget
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title is required")
		}
	}
	if in.Description != nil {
		description = *in.Description
	}
	if in.Budget != nil {
		if *in.Budget <= 0 {
			return nil, apperr.Validation("budget must be positive")
		}
		budget = *in.Budget
	}

	if err := e.chores.UpdateFields(choreID, title, description, budget); err != nil {
		return nil, err
	}
	return e.chores.GetByID(choreID)
}

// raceError re-reads the chore after a guarded update lost and reports the
// transition that actually failed. The precondition passed moments ago, so a
// zero-row update means a concurrent writer moved the chore first.
func (e *Engine) raceError(choreID int64, action string) error {
	actual := "unknown"
	if chore, err := e.chores.GetByID(choreID); err == nil && chore != nil {
		actual = string(chore.Status)
	}
	return apperr.InvalidTransition(expectedStatuses(transitions[action].from), actual)
}

// attemptPayout dispatches the post-completion payout attempt on the task
// runner. Refusals and gateway failures land in the payout record and the
// log, not in the completion response.
func (e *Engine) attemptPayout(choreID int64) {
	if e.payouts == nil || e.runner == nil {
		return
	}
	e.runner.Go("payout", func(ctx context.Context) error {
		_, err := e.payouts.CreatePayout(ctx, choreID)
		if err != nil {
			return fmt.Errorf("payout for chore %d: %w", choreID, err)
		}
		return nil
	})
}

func (e *Engine) notifyUser(userID int64, event string, payload map[string]any) {
	if e.sink == nil || e.runner == nil {
		return
	}
	e.runner.Go("notify", func(ctx context.Context) error {
		return e.sink.Notify(ctx, userID, event, payload)
	})
}

func (e *Engine) broadcast(choreID int64, status model.ChoreStatus) {
	if e.hub != nil {
		e.hub.Broadcast(ws.NewEvent("chore", "status_changed", choreID, string(status)))
	}
}
