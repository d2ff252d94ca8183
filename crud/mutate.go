package crud

import (
	"context"
	"errors"
	"fmt"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/events"
	"github.com/qolzam/telar/apps/crud/internal/database/sqldb"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/permissions"
	"github.com/qolzam/telar/apps/crud/validation"
)

// Create validates the payload under the create rule-group and inserts the new entity.
// A non-nil result with an *errors.EventsFailedError means the row was committed but a
// created handler failed.
func (s *Service[E, P, O]) Create(ctx context.Context, req CreateRequest) (O, error) {
	var zero O
	preq := &permissions.Request{Action: permissions.Create, User: req.User, Payload: req.Input}
	if err := s.permissions.Evaluate(ctx, preq); err != nil {
		return zero, err
	}

	payload, _, err := s.decode(ctx, req.Input, validation.Create)
	if err != nil {
		return zero, err
	}

	entity, err := s.mapper.NewEntity(ctx, preq, payload)
	if err != nil {
		return zero, fmt.Errorf("failed to build %s: %w", s.resource.Name, err)
	}

	postFailure, err := s.mutate(ctx, entity, events.Creating, events.Created, s.store.Insert)
	if err != nil {
		return zero, err
	}
	return s.reload(ctx, entity, postFailure)
}

// Update loads the target, validates the payload under the update or partial_update rule-group
// and persists the merged entity. Partial updates leave absent keys unchanged.
func (s *Service[E, P, O]) Update(ctx context.Context, req UpdateRequest) (O, error) {
	var zero O
	action, group := permissions.Update, validation.Update
	if req.Partial {
		action, group = permissions.PartialUpdate, validation.PartialUpdate
	}
	preq := &permissions.Request{Action: action, User: req.User, ID: req.ID, Payload: req.Input}

	entity, err := s.authorize(ctx, preq, req.ID)
	if err != nil {
		return zero, err
	}

	payload, fields, err := s.decode(ctx, req.Input, group)
	if err != nil {
		return zero, err
	}
	if !req.Partial {
		fields = nil
	}
	if err := s.mapper.MergeEntity(ctx, entity, payload, fields); err != nil {
		return zero, fmt.Errorf("failed to merge %s: %w", s.resource.Name, err)
	}

	postFailure, err := s.mutate(ctx, entity, events.Updating, events.Updated, s.store.Update)
	if err != nil {
		return zero, err
	}
	return s.reload(ctx, entity, postFailure)
}

// Destroy loads the target and removes it. An *errors.EventsFailedError with Committed set
// means the row is gone but a destroyed handler failed.
func (s *Service[E, P, O]) Destroy(ctx context.Context, req DestroyRequest) error {
	preq := &permissions.Request{Action: permissions.Destroy, User: req.User, ID: req.ID}

	entity, err := s.authorize(ctx, preq, req.ID)
	if err != nil {
		return err
	}

	postFailure, err := s.mutate(ctx, entity, events.Destroying, events.Destroyed, s.store.Remove)
	if err != nil {
		return err
	}
	if postFailure != nil {
		return postFailure
	}
	return nil
}

// decode projects the raw input onto a fresh payload and validates it under group
func (s *Service[E, P, O]) decode(ctx context.Context, input map[string]interface{}, group validation.RuleGroup) (*P, []string, error) {
	payload := new(P)
	fields, err := s.projector.ProjectInput(input, payload, group)
	if err != nil {
		return nil, nil, err
	}

	violations, err := s.validator.Validate(ctx, payload, group)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate %s: %w", s.resource.Name, err)
	}
	if len(violations) > 0 {
		return nil, nil, crudErrors.NewValidationError(violations...)
	}
	return payload, fields, nil
}

// mutate runs pre-event, persist and post-event in one transaction. Any failure before the
// post-event rolls back and comes back as TransactionFailed. Post-event failures do not roll back;
// they are returned with Committed set once this call committed. When ctx already carries a
// transaction the caller owns the commit and Committed stays false.
func (s *Service[E, P, O]) mutate(ctx context.Context, entity *E, pre, post events.Verb,
	persist func(context.Context, *E) error) (*crudErrors.EventsFailedError, error) {

	joined := sqldb.TxFromContext(ctx) != nil
	var postFailure *crudErrors.EventsFailedError
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.bus.Publish(txCtx, events.NewEvent(s.resource.Name, pre, *entity)); err != nil {
			return err
		}
		if err := persist(txCtx, entity); err != nil {
			return err
		}
		if err := s.bus.Publish(txCtx, events.NewEvent(s.resource.Name, post, *entity)); err != nil {
			var failed *crudErrors.EventsFailedError
			if !errors.As(err, &failed) {
				return err
			}
			postFailure = failed
		}
		return nil
	})
	if err != nil {
		if crudErrors.HasKind(err) {
			log.WarnWithContext(ctx, "[crud] %s %s rolled back: %v", pre, s.resource.Name, err)
		} else {
			log.ErrorWithContext(ctx, "[crud] %s %s rolled back on store error: %v", pre, s.resource.Name, err)
		}
		return nil, crudErrors.NewTransactionFailed(err)
	}

	if postFailure != nil {
		postFailure.Committed = !joined
		log.WarnWithContext(ctx, "[crud] %s %s finished with failed handlers (committed=%t): %v",
			post, s.resource.Name, postFailure.Committed, postFailure)
	}
	return postFailure, nil
}

// reload fetches the committed row and projects it. A post-event failure is returned alongside
// the result so the caller sees both.
func (s *Service[E, P, O]) reload(ctx context.Context, entity *E, postFailure *crudErrors.EventsFailedError) (O, error) {
	saved, err := s.store.Load(ctx, (*entity).EntityID())
	if err != nil {
		s.logStoreError(ctx, "reload", err)
		var zero O
		return zero, err
	}
	out, err := s.output(*saved)
	if err != nil {
		return out, err
	}
	if postFailure != nil {
		return out, postFailure
	}
	return out, nil
}
