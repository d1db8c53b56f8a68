package application

import (
	"context"
	"sort"
	"strings"
	"time"
)

var clientRecords = collection[Client]{
	name:   "client",
	get:    func(d *StoredData) []Client { return d.Clients },
	set:    func(d *StoredData, v []Client) { d.Clients = v },
	id:     func(c *Client) *string { return &c.ID },
	stamps: func(c *Client) (*time.Time, *time.Time) { return &c.CreatedAt, &c.UpdatedAt },
	clone:  Client.clone,
}

var activityRecords = collection[Activity]{
	name:   "activity",
	get:    func(d *StoredData) []Activity { return d.Activities },
	set:    func(d *StoredData, v []Activity) { d.Activities = v },
	id:     func(a *Activity) *string { return &a.ID },
	stamps: func(a *Activity) (*time.Time, *time.Time) { return &a.CreatedAt, &a.UpdatedAt },
}

// AddClient appends a client. New clients start as leads unless a status is given.
func (s *Store) AddClient(ctx context.Context, client Client) Client {
	created, _ := createRecord(s, ctx, clientRecords, client, func(_ *StoredData, c *Client) error {
		if c.Status == "" {
			c.Status = ClientLead
		}
		c.Email = strings.TrimSpace(c.Email)
		return nil
	})
	return created
}

// UpdateClient merges patch into the client with id.
func (s *Store) UpdateClient(ctx context.Context, id string, patch func(*Client)) (Client, bool) {
	return updateRecord(s, ctx, clientRecords, id, patch, nil)
}

// DeleteClient removes the client with id. Records referencing the client keep
// the dangling id so history such as transactions is not rewritten.
func (s *Store) DeleteClient(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, clientRecords, id)
}

// Client returns the client with id.
func (s *Store) Client(id string) (Client, bool) {
	return findRecord(s, clientRecords, id)
}

// Clients returns every client in insertion order.
func (s *Store) Clients() []Client {
	return listRecords(s, clientRecords)
}

// AddActivity appends a timeline entry.
func (s *Store) AddActivity(ctx context.Context, activity Activity) Activity {
	created, _ := createRecord(s, ctx, activityRecords, activity, func(_ *StoredData, a *Activity) error {
		if a.Type == "" {
			a.Type = ActivityNote
		}
		return nil
	})
	return created
}

// UpdateActivity merges patch into the activity with id.
func (s *Store) UpdateActivity(ctx context.Context, id string, patch func(*Activity)) (Activity, bool) {
	return updateRecord(s, ctx, activityRecords, id, patch, nil)
}

// DeleteActivity removes the activity with id.
func (s *Store) DeleteActivity(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, activityRecords, id)
}

// Activity returns the activity with id.
func (s *Store) Activity(id string) (Activity, bool) {
	return findRecord(s, activityRecords, id)
}

// Activities returns every activity in insertion order.
func (s *Store) Activities() []Activity {
	return listRecords(s, activityRecords)
}

// ClientTimeline returns the activities attached to clientID, newest date first.
func (s *Store) ClientTimeline(clientID string) []Activity {
	var out []Activity
	for _, activity := range s.Activities() {
		if activity.ClientID == clientID {
			out = append(out, activity)
		}
	}
	sortActivitiesByDateDesc(out)
	return out
}

func sortActivitiesByDateDesc(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date > activities[j].Date
	})
}
