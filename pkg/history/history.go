// Package history records finished controller runs.
//
// A [Run] is the transcript of one run: its log lines, step count, outcome and
// timing. Tree state is never persisted; replaying a scenario rebuilds it.
//
// # Stores
//
//   - [FileStore]: one JSON file per run in a local directory (CLI default).
//   - [MongoStore]: a MongoDB collection, for runs recorded by a server.
//   - [NullStore]: discards everything (history disabled).
//
// All stores return an ErrCodeRunNotFound error from Get for unknown IDs and
// list runs newest first.
package history

import (
	"context"
	"time"

	"github.com/matzehuels/algoviz/pkg/controller"
)

// Run is the persisted transcript of a finished run.
type Run struct {
	ID         string    `json:"id" bson:"_id"`
	Algorithm  string    `json:"algorithm" bson:"algorithm"`
	Steps      int       `json:"steps" bson:"steps"`
	Log        []string  `json:"log" bson:"log"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
}

// FromResult converts a controller result into a Run.
func FromResult(res controller.Result) *Run {
	r := &Run{
		ID:         res.RunID,
		Algorithm:  res.DisplayName,
		Steps:      res.Steps,
		Log:        append([]string{}, res.Log...),
		StartedAt:  res.StartedAt.UTC(),
		FinishedAt: res.FinishedAt.UTC(),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

// Failed reports whether the routine ended with an error.
func (r *Run) Failed() bool { return r.Error != "" }

// Duration returns the wall-clock time of the run.
func (r *Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Store persists runs.
type Store interface {
	// Save stores r, replacing any run with the same ID.
	Save(ctx context.Context, r *Run) error

	// Get returns the run with the given ID.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Close releases resources.
	Close() error
}

// Recorder returns a controller OnFinish callback that saves every run to s.
// Save failures are passed to onErr, if set; they never affect the run.
func Recorder(s Store, onErr func(error)) func(context.Context, controller.Result) {
	return func(ctx context.Context, res controller.Result) {
		if err := s.Save(ctx, FromResult(res)); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// NullStore discards runs.
type NullStore struct{}

// NewNullStore creates a store that records nothing.
func NewNullStore() *NullStore { return &NullStore{} }

func (NullStore) Save(context.Context, *Run) error { return nil }

func (NullStore) Get(_ context.Context, id string) (*Run, error) {
	return nil, notFound(id)
}

func (NullStore) List(context.Context, int) ([]*Run, error) { return []*Run{}, nil }

func (NullStore) Close() error { return nil }

// Ensure implementations satisfy Store.
var (
	_ Store = (*NullStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*MongoStore)(nil)
)
