package booking

import (
	"context"
	"fmt"
)

// Confirmer exposes the three remote confirm operations, one per kind.
type Confirmer interface {
	ConfirmActivity(ctx context.Context, id int64) error
	ConfirmPackage(ctx context.Context, id int64) error
	ConfirmTour(ctx context.Context, id int64) error
}

// Dispatch sends a confirm for booking id to the operation matching kind.
//
// It moves the remote booking from confirmed=false to confirmed=true and
// nothing else: callers must refetch every collection afterwards instead of
// patching local state, and must not call Dispatch again for a booking whose
// confirm is still in flight. An unknown kind is a caller bug and returns
// ErrUnknownKind without touching the backend.
func Dispatch(ctx context.Context, c Confirmer, kind Kind, id int64) error {
	switch kind {
	case KindActivity:
		return c.ConfirmActivity(ctx, id)
	case KindPackage:
		return c.ConfirmPackage(ctx, id)
	case KindTour:
		return c.ConfirmTour(ctx, id)
	}
	return fmt.Errorf("dispatch confirm %d: %w: %q", id, ErrUnknownKind, kind)
}
