package application

import (
	"context"
	"time"
)

// collection describes how to reach one entity slice inside the aggregate.
type collection[T any] struct {
	name string
	get  func(*StoredData) []T
	set  func(*StoredData, []T)
	id   func(*T) *string
	// stamps returns the audit fields, or nils for entities without them.
	stamps func(*T) (created, updated *time.Time)
	clone  func(T) T
}

func (c collection[T]) index(items []T, id string) int {
	if id == "" {
		return -1
	}
	for i := range items {
		if *c.id(&items[i]) == id {
			return i
		}
	}
	return -1
}

func (c collection[T]) copyOf(item T) T {
	if c.clone != nil {
		return c.clone(item)
	}
	return item
}

// appended returns a new slice; the input backing array is never written.
func appended[T any](items []T, item T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}

func replacedAt[T any](items []T, i int, item T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[i] = item
	return out
}

func removedAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func noStamps[T any](*T) (*time.Time, *time.Time) { return nil, nil }

// createRecord assigns an id and audit timestamps, lets prepare adjust the
// record against the working aggregate, and appends it. A prepare error
// aborts the mutation.
func createRecord[T any](s *Store, ctx context.Context, c collection[T], item T, prepare func(d *StoredData, item *T) error) (T, error) {
	item = c.copyOf(item)
	_, err := s.mutate(ctx, "create_"+c.name, func(d *StoredData, now time.Time) error {
		*c.id(&item) = s.idGenerator()
		if created, updated := c.stamps(&item); created != nil {
			*created = now
			*updated = now
		}
		if prepare != nil {
			if err := prepare(d, &item); err != nil {
				return err
			}
		}
		c.set(d, appended(c.get(d), item))
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.copyOf(item), nil
}

// updateRecord merges patch into the record with id. The id and creation time
// are preserved whatever the patch does. An unknown id is a silent no-op
// reported as false.
func updateRecord[T any](s *Store, ctx context.Context, c collection[T], id string, patch func(*T), finish func(d *StoredData, before T, after *T)) (T, bool) {
	var result T
	applied, _ := s.mutate(ctx, "update_"+c.name, func(d *StoredData, now time.Time) error {
		items := c.get(d)
		i := c.index(items, id)
		if i < 0 {
			return errNoChange
		}
		before := items[i]
		updated := c.copyOf(before)
		if patch != nil {
			patch(&updated)
		}
		*c.id(&updated) = id
		if created, stamp := c.stamps(&updated); created != nil {
			prevCreated, _ := c.stamps(&before)
			*created = *prevCreated
			*stamp = now
		}
		if finish != nil {
			finish(d, before, &updated)
		}
		c.set(d, replacedAt(items, i, updated))
		result = c.copyOf(updated)
		return nil
	})
	return result, applied
}

func deleteRecord[T any](s *Store, ctx context.Context, c collection[T], id string) bool {
	applied, _ := s.mutate(ctx, "delete_"+c.name, func(d *StoredData, _ time.Time) error {
		items := c.get(d)
		i := c.index(items, id)
		if i < 0 {
			return errNoChange
		}
		c.set(d, removedAt(items, i))
		return nil
	})
	return applied
}

func findRecord[T any](s *Store, c collection[T], id string) (T, bool) {
	var (
		found T
		ok    bool
	)
	s.view(func(d *StoredData) {
		items := c.get(d)
		if i := c.index(items, id); i >= 0 {
			found, ok = c.copyOf(items[i]), true
		}
	})
	return found, ok
}

func listRecords[T any](s *Store, c collection[T]) []T {
	var out []T
	s.view(func(d *StoredData) {
		items := c.get(d)
		out = make([]T, len(items))
		for i, item := range items {
			out[i] = c.copyOf(item)
		}
	})
	return out
}
