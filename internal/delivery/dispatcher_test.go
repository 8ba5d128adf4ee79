package delivery_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/harvester-service/internal/delivery"
	"jobmate/harvester-service/internal/model"
)

type flagStore struct {
	mu       sync.Mutex
	sent     map[string]bool
	exported map[string]bool
	readErr  error
}

func newFlagStore() *flagStore {
	return &flagStore{sent: map[string]bool{}, exported: map[string]bool{}}
}

func (s *flagStore) IsSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[id], s.readErr
}

func (s *flagStore) MarkSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent[id] {
		return false, nil
	}
	s.sent[id] = true
	return true, nil
}

func (s *flagStore) IsExported(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exported[id], s.readErr
}

func (s *flagStore) MarkExported(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exported[id] {
		return false, nil
	}
	s.exported[id] = true
	return true, nil
}

type fakeNotifier struct {
	fail map[string]bool
	got  []string
}

func (n *fakeNotifier) Notify(_ context.Context, l model.Listing) error {
	n.got = append(n.got, l.ID)
	if n.fail[l.ID] {
		return errors.New("webhook down")
	}
	return nil
}

type fakeExporter struct {
	written int // -1 writes everything
	err     error
	got     [][]string
}

func (e *fakeExporter) Export(_ context.Context, ls []model.Listing) (int, error) {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
	}
	e.got = append(e.got, ids)
	if e.written < 0 {
		return len(ls), e.err
	}
	return e.written, e.err
}

type countingObserver map[string]int

func (o countingObserver) ObserveDelivery(target string, ok bool) {
	key := target + ":fail"
	if ok {
		key = target + ":ok"
	}
	o[key]++
}

func listings(ids ...string) []model.Listing {
	out := make([]model.Listing, len(ids))
	for i, id := range ids {
		out[i] = model.Listing{ID: id, Title: ptr("Job " + id), URL: "https://www.workana.com/job/" + id}
	}
	return out
}

func TestDispatch_NotifiesAndExportsOnce(t *testing.T) {
	st := newFlagStore()
	n := &fakeNotifier{}
	e := &fakeExporter{written: -1}
	obs := countingObserver{}
	d := delivery.NewDispatcher(st, n, e, delivery.DispatcherConfig{}, obs, nil)

	r := d.Dispatch(context.Background(), listings("a", "b"))
	assert.Equal(t, 2, r.Candidates)
	assert.Equal(t, 2, r.Sent)
	assert.Equal(t, 2, r.Exported)
	assert.True(t, st.sent["a"])
	assert.True(t, st.exported["b"])
	assert.Equal(t, 2, obs["notify:ok"])
	assert.Equal(t, 1, obs["export:ok"])

	// Redelivery of the same listings is a no-op.
	r = d.Dispatch(context.Background(), listings("a", "b"))
	assert.Equal(t, 0, r.Sent)
	assert.Equal(t, 2, r.AlreadySent)
	assert.Equal(t, 2, r.AlreadyExported)
	assert.Equal(t, []string{"a", "b"}, n.got)
	require.Len(t, e.got, 1)
}

func TestDispatch_FailedNotificationNotMarked(t *testing.T) {
	st := newFlagStore()
	n := &fakeNotifier{fail: map[string]bool{"b": true}}
	obs := countingObserver{}
	d := delivery.NewDispatcher(st, n, nil, delivery.DispatcherConfig{}, obs, nil)

	r := d.Dispatch(context.Background(), listings("a", "b", "c"))
	assert.Equal(t, 2, r.Sent)
	assert.Equal(t, 1, r.SendFailed)
	assert.False(t, st.sent["b"])
	assert.Equal(t, 1, obs["notify:fail"])

	// A later dispatch retries only the failed one.
	n.fail = nil
	r = d.Dispatch(context.Background(), listings("a", "b", "c"))
	assert.Equal(t, 1, r.Sent)
	assert.Equal(t, 2, r.AlreadySent)
	assert.True(t, st.sent["b"])
}

func TestDispatch_RedFlagSkipsNotificationOnly(t *testing.T) {
	st := newFlagStore()
	n := &fakeNotifier{}
	e := &fakeExporter{written: -1}
	d := delivery.NewDispatcher(st, n, e, delivery.DispatcherConfig{RedFlags: []string{"job b"}}, nil, nil)

	r := d.Dispatch(context.Background(), listings("a", "b"))
	assert.Equal(t, 1, r.Sent)
	assert.Equal(t, 1, r.Filtered)
	assert.Equal(t, 2, r.Exported)
	assert.Equal(t, []string{"a"}, n.got)
	assert.False(t, st.sent["b"])
	assert.True(t, st.exported["b"])
}

func TestDispatch_PartialExportMarksWrittenPrefix(t *testing.T) {
	st := newFlagStore()
	e := &fakeExporter{written: 1, err: errors.New("disk full")}
	obs := countingObserver{}
	d := delivery.NewDispatcher(st, nil, e, delivery.DispatcherConfig{}, obs, nil)

	r := d.Dispatch(context.Background(), listings("a", "b", "c"))
	assert.Equal(t, 1, r.Exported)
	assert.Equal(t, 2, r.ExportFailed)
	assert.True(t, st.exported["a"])
	assert.False(t, st.exported["b"])
	assert.False(t, st.exported["c"])
	assert.Equal(t, 1, obs["export:fail"])
}

func TestDispatch_ExporterOvercountIsClamped(t *testing.T) {
	st := newFlagStore()
	e := &fakeExporter{written: 10}
	d := delivery.NewDispatcher(st, nil, e, delivery.DispatcherConfig{}, nil, nil)

	r := d.Dispatch(context.Background(), listings("a"))
	assert.Equal(t, 1, r.Exported)
}

func TestDispatch_FlagReadErrorSkips(t *testing.T) {
	st := newFlagStore()
	st.readErr = errors.New("db locked")
	n := &fakeNotifier{}
	e := &fakeExporter{written: -1}
	d := delivery.NewDispatcher(st, n, e, delivery.DispatcherConfig{}, nil, nil)

	r := d.Dispatch(context.Background(), listings("a"))
	assert.Equal(t, 1, r.SendFailed)
	assert.Equal(t, 1, r.ExportFailed)
	assert.Empty(t, n.got)
	assert.Empty(t, e.got)
}

func TestDispatch_SkipsEmptyIDAndEmptyInput(t *testing.T) {
	st := newFlagStore()
	n := &fakeNotifier{}
	d := delivery.NewDispatcher(st, n, nil, delivery.DispatcherConfig{}, nil, nil)

	assert.Equal(t, delivery.Report{}, d.Dispatch(context.Background(), nil))

	r := d.Dispatch(context.Background(), []model.Listing{{ID: ""}})
	assert.Equal(t, 1, r.Candidates)
	assert.Zero(t, r.Sent)
	assert.Empty(t, n.got)
}

func TestDispatch_CancelledStopsNotifying(t *testing.T) {
	st := newFlagStore()
	n := &fakeNotifier{}
	d := delivery.NewDispatcher(st, n, nil, delivery.DispatcherConfig{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := d.Dispatch(ctx, listings("a", "b"))
	assert.Zero(t, r.Sent)
	assert.Empty(t, n.got)
}
