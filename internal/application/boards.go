package application

import (
	"context"
	"slices"
	"time"
)

// board links a stage collection with the records placed on its stages.
// Sales deals and project tasks share this behaviour.
type board[S any, R any] struct {
	stages  collection[S]
	items   collection[R]
	stageOf func(*R) *string
	orderOf func(*S) *int
}

// resolve returns id when it names an existing stage, otherwise the first
// stage in collection order, or "" when there are no stages.
func (b board[S, R]) resolve(d *StoredData, id string) string {
	stages := b.stages.get(d)
	if b.stages.index(stages, id) >= 0 {
		return id
	}
	if len(stages) == 0 {
		return ""
	}
	return *b.stages.id(&stages[0])
}

// addStage appends a stage at the end of the board. Records added while the
// board had no stages are unstaged (empty stage id); the first stage added to
// an empty board adopts them.
func (b board[S, R]) addStage(s *Store, ctx context.Context, stage S) S {
	created, _ := createRecord(s, ctx, b.stages, stage, func(d *StoredData, st *S) error {
		existing := len(b.stages.get(d))
		*b.orderOf(st) = existing
		if existing == 0 {
			b.adoptUnstaged(d, *b.stages.id(st))
		}
		return nil
	})
	return created
}

func (b board[S, R]) adoptUnstaged(d *StoredData, stageID string) {
	items := b.items.get(d)
	var adopted []R
	for j := range items {
		if *b.stageOf(&items[j]) != "" {
			continue
		}
		if adopted == nil {
			adopted = slices.Clone(items)
		}
		*b.stageOf(&adopted[j]) = stageID
	}
	if adopted != nil {
		b.items.set(d, adopted)
	}
}

// deleteStage removes a stage and moves every record on it to the first
// remaining stage in collection order. Deleting the only stage while records
// still reference it fails with ErrStageInUse.
func (b board[S, R]) deleteStage(s *Store, ctx context.Context, id string) (bool, error) {
	return s.mutate(ctx, "delete_"+b.stages.name, func(d *StoredData, now time.Time) error {
		stages := b.stages.get(d)
		i := b.stages.index(stages, id)
		if i < 0 {
			return errNoChange
		}
		remaining := removedAt(stages, i)
		fallback := ""
		if len(remaining) > 0 {
			fallback = *b.stages.id(&remaining[0])
		}

		items := b.items.get(d)
		var reassigned []R
		for j := range items {
			if *b.stageOf(&items[j]) != id {
				continue
			}
			if fallback == "" {
				return ErrStageInUse
			}
			if reassigned == nil {
				reassigned = slices.Clone(items)
			}
			*b.stageOf(&reassigned[j]) = fallback
			if _, updated := b.items.stamps(&reassigned[j]); updated != nil {
				*updated = now
			}
		}

		b.stages.set(d, remaining)
		if reassigned != nil {
			b.items.set(d, reassigned)
		}
		return nil
	})
}

// move changes only the stage of one record. Unknown records are a silent
// no-op; unknown stages are rejected with ErrUnknownStage.
func (b board[S, R]) move(s *Store, ctx context.Context, itemID, stageID string) (R, bool, error) {
	var result R
	applied, err := s.mutate(ctx, "move_"+b.items.name, func(d *StoredData, now time.Time) error {
		items := b.items.get(d)
		i := b.items.index(items, itemID)
		if i < 0 {
			return errNoChange
		}
		if b.stages.index(b.stages.get(d), stageID) < 0 {
			return ErrUnknownStage
		}
		item := items[i]
		if *b.stageOf(&item) == stageID {
			return errNoChange
		}
		*b.stageOf(&item) = stageID
		if _, updated := b.items.stamps(&item); updated != nil {
			*updated = now
		}
		b.items.set(d, replacedAt(items, i, item))
		result = item
		return nil
	})
	return result, applied, err
}

// reorder replaces the stage collection with ordered. The list must name every
// existing stage exactly once; each stage's order is re-derived from its
// position.
func (b board[S, R]) reorder(s *Store, ctx context.Context, ordered []S) error {
	_, err := s.mutate(ctx, "reorder_"+b.stages.name, func(d *StoredData, _ time.Time) error {
		current := b.stages.get(d)
		if len(ordered) != len(current) {
			return ErrInvalidStageOrder
		}
		seen := make(map[string]struct{}, len(ordered))
		out := make([]S, len(ordered))
		for i, stage := range ordered {
			id := *b.stages.id(&stage)
			if _, dup := seen[id]; dup || b.stages.index(current, id) < 0 {
				return ErrInvalidStageOrder
			}
			seen[id] = struct{}{}
			out[i] = stage
			*b.orderOf(&out[i]) = i
		}
		b.stages.set(d, out)
		return nil
	})
	return err
}

// keepKnownStage reverts a patched stage reference that points nowhere.
func (b board[S, R]) keepKnownStage(d *StoredData, before R, after *R) {
	if b.stages.index(b.stages.get(d), *b.stageOf(after)) < 0 {
		*b.stageOf(after) = *b.stageOf(&before)
	}
}

// ordered returns the stages sorted by their order field, ties kept in
// collection order.
func (b board[S, R]) ordered(s *Store) []S {
	stages := listRecords(s, b.stages)
	slices.SortStableFunc(stages, func(x, y S) int {
		return *b.orderOf(&x) - *b.orderOf(&y)
	})
	return stages
}
