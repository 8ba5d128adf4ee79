package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTo_RejectsMovesAfterDone(t *testing.T) {
	s := &session{state: StateInit, res: &Result{Trail: []State{StateInit}}}
	s.to(StateLoading)
	s.to(StateStop)
	s.to(StateDone)

	assert.PanicsWithValue(t, "scraper: crawl session already DONE, cannot move to LOADING_PAGE", func() {
		s.to(StateLoading)
	})
	assert.Equal(t, []State{StateInit, StateLoading, StateStop, StateDone}, s.res.Trail)
}

func TestSessionTo_RejectsIllegalMove(t *testing.T) {
	s := &session{state: StateInit, res: &Result{}}
	assert.Panics(t, func() { s.to(StateExtracting) })
	assert.Equal(t, StateInit, s.state)
}
