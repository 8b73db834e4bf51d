package scene

import (
	"sync"
	"time"
)

// Sample is one recorded SetProperties call.
type Sample struct {
	At    time.Duration
	Node  NodeID
	Props Properties
}

// Recorder wraps a Scene and records every mutation against a clock.
type Recorder struct {
	Scene
	now func() time.Duration

	mu      sync.Mutex
	created []NodeID
	samples []Sample
}

// NewRecorder records mutations of inner, stamping them with now().
func NewRecorder(inner Scene, now func() time.Duration) *Recorder {
	return &Recorder{Scene: inner, now: now}
}

func (r *Recorder) CreateChild(parent NodeID) (NodeID, error) {
	id, err := r.Scene.CreateChild(parent)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.created = append(r.created, id)
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) SetProperties(id NodeID, props Properties) error {
	if err := r.Scene.SetProperties(id, props); err != nil {
		return err
	}
	r.mu.Lock()
	r.samples = append(r.samples, Sample{At: r.now(), Node: id, Props: props.Clone()})
	r.mu.Unlock()
	return nil
}

// Created returns the nodes created through the recorder, in order.
func (r *Recorder) Created() []NodeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NodeID(nil), r.created...)
}

// Samples returns every recorded property write, in order.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}
