// Package session keeps per-user training state behind opaque handles, so
// concurrent users never share a dataset, model or report.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

// ErrSessionNotFound is returned for unknown or deleted handles.
var ErrSessionNotFound = errors.New("session not found")

// State is the lifecycle state of a session.
type State string

const (
	StateIdle    State = "idle"
	StateTrained State = "trained"
	StateError   State = "error"
)

// Session owns one dataset and the model trained on it. All access goes
// through the owning Registry, which serializes requests per session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu      sync.Mutex
	state   State
	dataset *trimmer.Dataset
	params  trimmer.Hyperparameters
	opts    []trimmer.ModelOption
	report  *trimmer.Report
	history []trimmer.Update
}

// Status is a snapshot of a session.
type Status struct {
	ID         uuid.UUID               `json:"id"`
	State      State                   `json:"state"`
	Parameters trimmer.Hyperparameters `json:"parameters"`
	Trims      []trimmer.Update        `json:"trims"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Registry maps handles to sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	opts     []trimmer.ModelOption
}

// NewRegistry creates an empty registry. opts are applied to every model the
// registry trains.
func NewRegistry(opts ...trimmer.ModelOption) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
	}
}

// Create registers a dataset and returns its handle.
func (r *Registry) Create(ds *trimmer.Dataset) (uuid.UUID, error) {
	if err := ds.Validate(); err != nil {
		return uuid.Nil, err
	}
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		state:     StateIdle,
		dataset:   ds,
		params:    trimmer.DefaultHyperparameters(),
		opts:      r.opts,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.GetLoggerWithName("session").Info("Session created",
		log.SessionIDKey, s.ID.String(),
		log.SamplesKey, ds.NSamples(),
		log.FeaturesKey, len(ds.FeatureNames))
	return s.ID, nil
}

func (r *Registry) get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	return s, nil
}

// Train fits a new tree with params and returns its report. The trim history
// is cleared.
func (r *Registry) Train(id uuid.UUID, params trimmer.Hyperparameters) (*trimmer.Report, error) {
	s, err := r.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.train(params); err != nil {
		return nil, err
	}
	s.history = nil
	return s.report, nil
}

// Trim applies the trim suggestion for the node at path (see
// trimmer.Report.Find) and retrains.
func (r *Registry) Trim(id uuid.UUID, path string, reason trimmer.TrimReason) (*trimmer.Report, error) {
	s, err := r.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report == nil {
		return nil, errors.NewNotFittedError("Session", "Trim")
	}
	node, err := s.report.Find(path)
	if err != nil {
		return nil, err
	}
	update, err := trimmer.SuggestTrim(node, reason)
	if err != nil {
		return nil, err
	}
	params, err := s.params.Apply(update)
	if err != nil {
		return nil, err
	}
	if err := s.train(params); err != nil {
		return nil, err
	}
	s.history = append(s.history, update)

	log.GetLoggerWithName("session").Info("Node trimmed",
		log.SessionIDKey, s.ID.String(),
		log.OperationKey, log.OperationTrim,
		"trim.path", path,
		"trim.update", update.String())
	return s.report, nil
}

// train must be called with s.mu held. On failure the previous report and
// parameters are kept.
func (s *Session) train(params trimmer.Hyperparameters) error {
	m, err := trimmer.NewTreeModel(s.dataset, params, s.opts...)
	if err != nil {
		return err
	}
	if err := m.Fit(); err != nil {
		s.state = StateError
		return err
	}
	report, err := trimmer.BuildReport(m)
	if err != nil {
		s.state = StateError
		return err
	}
	s.params = params
	s.report = report
	s.state = StateTrained
	return nil
}

// Report returns the latest report of a trained session.
func (r *Registry) Report(id uuid.UUID) (*trimmer.Report, error) {
	s, err := r.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return nil, errors.NewNotFittedError("Session", "Report")
	}
	return s.report, nil
}

// Status returns a snapshot of the session.
func (r *Registry) Status(id uuid.UUID) (Status, error) {
	s, err := r.get(id)
	if err != nil {
		return Status{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:         s.ID,
		State:      s.state,
		Parameters: s.params,
		Trims:      append([]trimmer.Update(nil), s.history...),
		CreatedAt:  s.CreatedAt,
	}, nil
}

// Delete removes a session.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
