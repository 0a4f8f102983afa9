package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	temporalworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"example.com/booking-portal/internal/booking"
)

const (
	confirmTaskQueue      = "portal-confirm-task-queue"
	confirmWorkflowName   = "portal.confirm.booking"
	confirmActivityName   = "portal.confirm"
	refetchActivityName   = "portal.refetch"
	errTypeUnknownKind    = "UnknownKind"
	errTypeRemote         = "RemoteError"
	errTypeConfirmFailure = "ConfirmFailed"
)

// ConfirmOrchestrator runs the confirm-then-refetch command.
type ConfirmOrchestrator interface {
	RunConfirm(ctx context.Context, input ConfirmInput) (ConfirmResult, error)
}

// ConfirmInput carries one confirm command.
type ConfirmInput struct {
	AttemptID string       `json:"attempt_id"`
	Kind      booking.Kind `json:"kind"`
	BookingID int64        `json:"booking_id"`
}

// ConfirmResult describes a finished confirm command. Refetched is false when
// the confirm went through but the follow-up fetch cycle did not publish.
type ConfirmResult struct {
	WorkflowID   string `json:"workflow_id,omitempty"`
	RunID        string `json:"run_id,omitempty"`
	Refetched    bool   `json:"refetched"`
	Generation   uint64 `json:"generation,omitempty"`
	RefetchError string `json:"refetch_error,omitempty"`
}

// RefetchResult is the outcome of the refetch step. Generation is the
// supplier cycle, CustomerGeneration the customer one; zero when superseded.
type RefetchResult struct {
	Generation         uint64 `json:"generation"`
	CustomerGeneration uint64 `json:"customer_generation"`
	Superseded         bool   `json:"superseded"`
}

// ConfirmActivities hosts the two steps of the confirm command. The same
// methods back both the Temporal activities and the in-process runner.
type ConfirmActivities struct {
	confirmer booking.Confirmer
	loader    *Loader
	logger    *slog.Logger
}

func NewConfirmActivities(confirmer booking.Confirmer, loader *Loader, logger *slog.Logger) *ConfirmActivities {
	return &ConfirmActivities{confirmer: confirmer, loader: loader, logger: logger}
}

// ConfirmActivity issues the kind-specific remote confirm. A booking the
// backend reports as already confirmed counts as confirmed.
func (a *ConfirmActivities) ConfirmActivity(ctx context.Context, input ConfirmInput) error {
	if err := booking.Dispatch(ctx, a.confirmer, input.Kind, input.BookingID); err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) && remote.AlreadyConfirmed() {
			a.logger.Info("booking already confirmed", "attempt_id", input.AttemptID, "kind", input.Kind, "booking_id", input.BookingID)
			return nil
		}
		a.logger.Error("confirm failed", "attempt_id", input.AttemptID, "kind", input.Kind, "booking_id", input.BookingID, "error", err)
		return err
	}
	a.logger.Info("booking confirmed", "attempt_id", input.AttemptID, "kind", input.Kind, "booking_id", input.BookingID)
	return nil
}

// RefetchActivity runs a full fetch cycle of both surfaces as the service
// identity, whatever caller issued the confirm. Being overtaken by a newer
// cycle is not a failure: that cycle already reflects the confirm.
func (a *ConfirmActivities) RefetchActivity(ctx context.Context) (RefetchResult, error) {
	ctx = withoutAuthorization(ctx)
	var result RefetchResult
	for _, role := range []booking.Role{booking.RoleSupplier, booking.RoleCustomer} {
		snap, err := a.loader.Refresh(ctx, role)
		switch {
		case errors.Is(err, ErrSuperseded):
			result.Superseded = true
		case err != nil:
			return RefetchResult{}, err
		case role == booking.RoleSupplier:
			result.Generation = snap.Generation
		default:
			result.CustomerGeneration = snap.Generation
		}
	}
	return result, nil
}

// temporalConfirm wraps ConfirmActivity so failures cross the Temporal
// boundary as typed, non-retryable application errors.
func (a *ConfirmActivities) temporalConfirm(ctx context.Context, input ConfirmInput) error {
	err := a.ConfirmActivity(ctx, input)
	if err == nil {
		return nil
	}
	var remote *RemoteError
	switch {
	case errors.Is(err, booking.ErrUnknownKind):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeUnknownKind, err)
	case errors.As(err, &remote):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeRemote, err, *remote)
	default:
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeConfirmFailure, err)
	}
}

// ConfirmBookingWorkflow confirms a booking and then refetches both
// surfaces. The confirm step runs exactly once; only the read-only refetch is
// retried.
func ConfirmBookingWorkflow(ctx workflow.Context, input ConfirmInput) (ConfirmResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.BookingID <= 0 {
		return ConfirmResult{}, temporal.NewNonRetryableApplicationError("booking_id required", errTypeConfirmFailure, nil)
	}

	confirmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(confirmCtx, confirmActivityName, input).Get(ctx, nil); err != nil {
		logger.Error("confirm activity failed", "kind", input.Kind, "booking_id", input.BookingID, "error", err)
		return ConfirmResult{}, err
	}

	refetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
		},
	})
	var refetch RefetchResult
	result := ConfirmResult{}
	if err := workflow.ExecuteActivity(refetchCtx, refetchActivityName).Get(ctx, &refetch); err != nil {
		logger.Warn("refetch after confirm failed", "kind", input.Kind, "booking_id", input.BookingID, "error", err)
		result.RefetchError = err.Error()
		return result, nil
	}
	result.Refetched = true
	result.Generation = refetch.Generation
	logger.Info("confirm workflow finished", "kind", input.Kind, "booking_id", input.BookingID, "generation", refetch.Generation)
	return result, nil
}

// RegisterConfirmWorker wires up the Temporal worker consuming the confirm task queue.
func RegisterConfirmWorker(c client.Client, activities *ConfirmActivities) temporalworker.Worker {
	w := temporalworker.New(c, confirmTaskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(ConfirmBookingWorkflow, workflow.RegisterOptions{Name: confirmWorkflowName})
	w.RegisterActivityWithOptions(activities.temporalConfirm, activity.RegisterOptions{Name: confirmActivityName})
	w.RegisterActivityWithOptions(activities.RefetchActivity, activity.RegisterOptions{Name: refetchActivityName})
	return w
}

// TemporalOrchestrator runs confirm commands as Temporal workflows.
type TemporalOrchestrator struct {
	client client.Client
	logger *slog.Logger
}

func NewTemporalOrchestrator(c client.Client, logger *slog.Logger) *TemporalOrchestrator {
	return &TemporalOrchestrator{client: c, logger: logger.With("component", "confirm.orchestrator")}
}

func (o *TemporalOrchestrator) RunConfirm(ctx context.Context, input ConfirmInput) (ConfirmResult, error) {
	options := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("confirm-%s-%d-%s", input.Kind, input.BookingID, input.AttemptID),
		TaskQueue:                confirmTaskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: 5 * time.Minute,
	}
	we, err := o.client.ExecuteWorkflow(ctx, options, confirmWorkflowName, input)
	if err != nil {
		o.logger.Error("start workflow failed", "kind", input.Kind, "booking_id", input.BookingID, "error", err)
		return ConfirmResult{}, err
	}
	var result ConfirmResult
	err = we.Get(ctx, &result)
	result.WorkflowID = we.GetID()
	result.RunID = we.GetRunID()
	if err != nil {
		o.logger.Error("confirm workflow failed", "workflow_id", result.WorkflowID, "error", err)
		return result, unwrapWorkflowError(err)
	}
	o.logger.Info("confirm workflow completed", "workflow_id", result.WorkflowID, "run_id", result.RunID, "refetched", result.Refetched)
	return result, nil
}

// unwrapWorkflowError restores the portal error behind a failed workflow so
// callers can match it the same way as with the in-process runner.
func unwrapWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case errTypeUnknownKind:
		return fmt.Errorf("%s: %w", appErr.Message(), booking.ErrUnknownKind)
	case errTypeRemote:
		var remote RemoteError
		if appErr.HasDetails() && appErr.Details(&remote) == nil {
			return &remote
		}
	}
	return err
}

// LocalOrchestrator runs the same two steps in-process when no Temporal
// server is configured.
type LocalOrchestrator struct {
	activities *ConfirmActivities
}

func NewLocalOrchestrator(activities *ConfirmActivities) *LocalOrchestrator {
	return &LocalOrchestrator{activities: activities}
}

func (o *LocalOrchestrator) RunConfirm(ctx context.Context, input ConfirmInput) (ConfirmResult, error) {
	if err := o.activities.ConfirmActivity(ctx, input); err != nil {
		return ConfirmResult{}, err
	}
	refetch, err := o.activities.RefetchActivity(ctx)
	if err != nil {
		o.activities.logger.Warn("refetch after confirm failed", "kind", input.Kind, "booking_id", input.BookingID, "error", err)
		return ConfirmResult{RefetchError: err.Error()}, nil
	}
	return ConfirmResult{Refetched: true, Generation: refetch.Generation}, nil
}

// ConfirmTaskQueue exposes the queue name for worker setup and tests.
func ConfirmTaskQueue() string {
	return confirmTaskQueue
}
