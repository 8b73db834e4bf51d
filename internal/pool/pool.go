// Package pool is the arena owning transient fragments. Fragment handles are
// slot indices with a generation, so a stale handle can never remove a node that
// a later run created in the same slot.
package pool

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/scene"
)

// Spec is the initial state of one fragment.
type Spec struct {
	Props           scene.Properties
	TransformOrigin string
}

// Recipe positions fragment index out of count.
type Recipe func(index, count int) Spec

// Fragment is a handle to a node owned by a Pool.
type Fragment struct {
	Node            scene.NodeID
	OriginIndex     int
	TransformOrigin string

	slot int
	gen  uint32
}

type slot struct {
	node scene.NodeID
	gen  uint32
	live bool
}

// Pool creates and removes fragments on one scene.
type Pool struct {
	scene  scene.Scene
	logger zerolog.Logger
	slots  []slot
	free   []int
	live   int
}

// New returns an empty Pool working on sc.
func New(sc scene.Scene, logger zerolog.Logger) *Pool {
	return &Pool{scene: sc, logger: logger}
}

// Live returns the number of fragments created and not yet disposed.
func (p *Pool) Live() int {
	return p.live
}

// Materialize creates count children of parent, each initialised by recipe.
// On failure every fragment created by this call is removed again.
func (p *Pool) Materialize(parent scene.NodeID, count int, recipe Recipe) ([]Fragment, error) {
	if count < 0 {
		return nil, fault.Invalid("fragment count %d is negative", count)
	}
	if count == 0 {
		return nil, nil
	}
	if recipe == nil {
		return nil, fault.Invalid("fragment recipe is nil")
	}

	out := make([]Fragment, 0, count)
	for i := 0; i < count; i++ {
		spec := recipe(i, count)
		node, err := p.scene.CreateChild(parent)
		if err != nil {
			p.Dispose(out)
			return nil, fmt.Errorf("create fragment %d/%d: %w", i, count, err)
		}
		f := p.track(node, i, spec.TransformOrigin)
		out = append(out, f)

		props := spec.Props.Clone()
		if spec.TransformOrigin != "" {
			props[scene.TransformOrigin] = scene.Str(spec.TransformOrigin)
		}
		if err := p.scene.SetProperties(node, props); err != nil {
			p.Dispose(out)
			return nil, fmt.Errorf("init fragment %d/%d: %w", i, count, err)
		}
	}

	p.logger.Debug().Int("count", count).Uint64("parent", uint64(parent)).Msg("fragments materialized")
	return out, nil
}

func (p *Pool) track(node scene.NodeID, index int, origin string) Fragment {
	var idx int
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.slots = append(p.slots, slot{})
		idx = len(p.slots) - 1
	}
	s := &p.slots[idx]
	s.gen++
	s.node = node
	s.live = true
	p.live++
	return Fragment{Node: node, OriginIndex: index, TransformOrigin: origin, slot: idx, gen: s.gen}
}

// Owns reports whether f is a live fragment of this pool.
func (p *Pool) Owns(f Fragment) bool {
	if f.slot < 0 || f.slot >= len(p.slots) {
		return false
	}
	s := p.slots[f.slot]
	return s.live && s.gen == f.gen && s.node == f.Node
}

// Dispose removes every live fragment in frags. Already disposed or foreign
// handles are skipped. Removal failures are logged; the slot is released anyway
// since a node the scene no longer knows cannot be leaked by us.
func (p *Pool) Dispose(frags []Fragment) {
	removed := 0
	for _, f := range frags {
		if !p.Owns(f) {
			continue
		}
		s := &p.slots[f.slot]
		if err := p.scene.Remove(s.node); err != nil && !errors.Is(err, scene.ErrNodeNotFound) {
			p.logger.Warn().Err(err).Uint64("node", uint64(s.node)).Msg("fragment removal failed")
		}
		s.live = false
		s.node = 0
		p.free = append(p.free, f.slot)
		p.live--
		removed++
	}
	if removed > 0 {
		p.logger.Debug().Int("count", removed).Msg("fragments disposed")
	}
}

// Nodes returns the node ids of frags in order.
func Nodes(frags []Fragment) []scene.NodeID {
	out := make([]scene.NodeID, len(frags))
	for i, f := range frags {
		out[i] = f.Node
	}
	return out
}
