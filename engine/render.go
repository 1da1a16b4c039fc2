package engine

import "github.com/ftahirops/circuittop/model"

// View is rebuilt from scratch whenever a new dataset is accepted.
type View interface {
	Rebuild(ds model.Dataset)
}

// RenderState holds the last dataset handed to the view. A dataset is
// accepted only if it differs by value from the one held.
type RenderState struct {
	held    model.Dataset
	has     bool
	renders int
}

// NewRenderState returns an empty state; the first dataset is always accepted.
func NewRenderState() *RenderState {
	return &RenderState{}
}

// ShouldRender reports whether ds differs from the held dataset.
func (s *RenderState) ShouldRender(ds model.Dataset) bool {
	return !s.has || !s.held.Equal(ds)
}

// Commit records ds as the rendered dataset.
func (s *RenderState) Commit(ds model.Dataset) {
	s.held = ds.Clone()
	if s.held == nil {
		s.held = model.Dataset{}
	}
	s.has = true
	s.renders++
}

// Offer commits ds and rebuilds v when ds is new. It returns whether v was
// rebuilt.
func (s *RenderState) Offer(ds model.Dataset, v View) bool {
	if !s.ShouldRender(ds) {
		return false
	}
	s.Commit(ds)
	v.Rebuild(s.held.Clone())
	return true
}

// Current returns a copy of the held dataset.
func (s *RenderState) Current() (model.Dataset, bool) {
	if !s.has {
		return nil, false
	}
	return s.held.Clone(), true
}

// Renders counts accepted datasets.
func (s *RenderState) Renders() int { return s.renders }

// ViewFunc adapts a function to View.
type ViewFunc func(ds model.Dataset)

// Rebuild implements View.
func (f ViewFunc) Rebuild(ds model.Dataset) { f(ds) }
