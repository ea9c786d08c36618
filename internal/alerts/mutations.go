package alerts

import (
	"context"

	"sedori/internal/logging"
	"sedori/internal/services"
)

// Transition moves one alert to the requested state along a single edge of
// the workflow graph. Bulk policy does not apply here.
func (s *Store) Transition(ctx context.Context, id int64, to State) (Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Alert{}, err
	}
	pos, ok := s.index[id]
	if !ok {
		return Alert{}, &NotFoundError{ID: id}
	}
	current := s.items[pos]
	if !CanTransition(current.State, to) {
		return Alert{}, &IllegalTransitionError{ID: id, Current: current.State, Requested: to, Legal: LegalNext(current.State)}
	}

	snap := s.working()
	updated := &snap.Alerts[pos]
	updated.State = to
	updated.UpdatedAt = s.stamp(*updated)
	if err := s.persist(ctx, "transition", snap); err != nil {
		return Alert{}, err
	}
	logging.WithContext(services.WithAlertID(ctx, id), s.logger).Info("alert transitioned",
		logging.String(logging.FieldEventType, "alert_transition"),
		logging.String("from", string(current.State)),
		logging.String("to", string(to)),
	)
	return s.items[pos], nil
}

// BulkTransition applies one target state to many alerts and flushes once.
// Each id is validated against the store policy in request order, so a
// repeated id sees the effect of its earlier occurrence. When the flush
// fails every id that would have succeeded is reported as a persistence
// failure and nothing changes.
func (s *Store) BulkTransition(ctx context.Context, ids []int64, to State) BulkReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report BulkReport
	snap := s.working()
	positions := make(map[int64]int, len(s.index))
	for id, pos := range s.index {
		positions[id] = pos
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Err: err})
			continue
		}
		pos, ok := positions[id]
		if !ok {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Err: &NotFoundError{ID: id}})
			continue
		}
		item := &snap.Alerts[pos]
		if !s.policy.Allows(item.State, to) {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Err: &IllegalTransitionError{
				ID: id, Current: item.State, Requested: to, Legal: s.policy.Next(item.State),
			}})
			continue
		}
		item.State = to
		item.UpdatedAt = s.stamp(*item)
		report.Succeeded = append(report.Succeeded, id)
	}

	if len(report.Succeeded) == 0 {
		return report
	}
	if err := s.persist(ctx, "bulk_transition", snap); err != nil {
		report = demote(report, err)
		return report
	}
	s.logger.Info("bulk transition applied",
		logging.String(logging.FieldEventType, "alert_bulk_transition"),
		logging.String("to", string(to)),
		logging.String("policy", string(s.policy)),
		logging.IDs("ids", report.Succeeded),
		logging.Int("failed", len(report.Failed)),
	)
	return report
}

// Delete removes one alert. Its id is never reused.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.index[id]; !ok {
		return &NotFoundError{ID: id}
	}
	snap := Snapshot{NextID: s.nextID, Alerts: without(s.items, map[int64]struct{}{id: {}})}
	if err := s.persist(ctx, "delete", snap); err != nil {
		return err
	}
	logging.WithContext(services.WithAlertID(ctx, id), s.logger).Info("alert deleted",
		logging.String(logging.FieldEventType, "alert_deleted"),
	)
	return nil
}

// BulkDelete removes many alerts and flushes once.
func (s *Store) BulkDelete(ctx context.Context, ids []int64) BulkReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report BulkReport
	remove := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Err: err})
			continue
		}
		_, exists := s.index[id]
		_, already := remove[id]
		if !exists || already {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Err: &NotFoundError{ID: id}})
			continue
		}
		remove[id] = struct{}{}
		report.Succeeded = append(report.Succeeded, id)
	}

	if len(remove) == 0 {
		return report
	}
	snap := Snapshot{NextID: s.nextID, Alerts: without(s.items, remove)}
	if err := s.persist(ctx, "bulk_delete", snap); err != nil {
		return demote(report, err)
	}
	s.logger.Info("bulk delete applied",
		logging.String(logging.FieldEventType, "alert_bulk_delete"),
		logging.IDs("ids", report.Succeeded),
		logging.Int("failed", len(report.Failed)),
	)
	return report
}

func without(items []Alert, remove map[int64]struct{}) []Alert {
	out := make([]Alert, 0, len(items))
	for _, item := range items {
		if _, drop := remove[item.ID]; drop {
			continue
		}
		out = append(out, item)
	}
	return out
}

// demote turns every success into a failure carrying err.
func demote(report BulkReport, err error) BulkReport {
	for _, id := range report.Succeeded {
		report.Failed = append(report.Failed, BulkFailure{ID: id, Err: err})
	}
	report.Succeeded = nil
	return report
}
