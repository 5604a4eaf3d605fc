package location

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"guestreport_client/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource serves fixed lists. A level can be gated so a test decides
// when (and in which order) responses arrive.
type fakeSource struct {
	mu        sync.Mutex
	countries []Item
	states    map[int][]Item
	cities    map[int][]Item
	gates     map[string]chan struct{}
	failures  map[string]error
	calls     []string

	// ignoreCancel makes gated calls wait for their gate even after the
	// resolver cancels them, so a stale response really arrives late.
	ignoreCancel bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		countries: []Item{{ID: 1, Name: "USA"}, {ID: 2, Name: "Canada"}},
		states: map[int][]Item{
			1: {{ID: 10, Name: "California"}, {ID: 11, Name: "Texas"}},
			2: {{ID: 20, Name: "Ontario"}, {ID: 21, Name: "Quebec"}},
		},
		cities: map[int][]Item{
			10: {{ID: 100, Name: "Los Angeles"}, {ID: 101, Name: "San Diego"}},
			11: {{ID: 110, Name: "Austin"}},
			20: {{ID: 200, Name: "Toronto"}},
		},
		gates:    map[string]chan struct{}{},
		failures: map[string]error{},
	}
}

func (f *fakeSource) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeSource) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	ch := f.gates[key]
	err := f.failures[key]
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()
	if ch != nil && ignoreCancel {
		<-ch
	} else if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
		}
	}
	return err
}

func (f *fakeSource) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) Countries(ctx context.Context) ([]Item, error) {
	if err := f.wait(ctx, "countries"); err != nil {
		return nil, err
	}
	return f.countries, nil
}

func (f *fakeSource) States(ctx context.Context, countryID int) ([]Item, error) {
	key := "states/" + strconv.Itoa(countryID)
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	return f.states[countryID], nil
}

func (f *fakeSource) Cities(ctx context.Context, stateID int) ([]Item, error) {
	key := "cities/" + strconv.Itoa(stateID)
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	return f.cities[stateID], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Notify(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.errs...)
}

func id(v int) *int { return &v }

func newTestResolver(src Source) (*Resolver, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewResolver(src, n, zap.NewNop()), n
}

func TestResolver_LoadCountries(t *testing.T) {
	r, n := newTestResolver(newFakeSource())
	list := r.LoadCountries(context.Background())

	assert.False(t, list.Loading)
	assert.Equal(t, []Item{{ID: 1, Name: "USA"}, {ID: 2, Name: "Canada"}}, list.Items)
	assert.Empty(t, n.all())
}

func TestResolver_LoadCountries_FailureNotifies(t *testing.T) {
	src := newFakeSource()
	src.failures["countries"] = errors.New("boom")
	r, n := newTestResolver(src)

	list := r.LoadCountries(context.Background())
	assert.False(t, list.Loading)
	assert.Empty(t, list.Items)

	errs := n.all()
	require.Len(t, errs, 1)
	assert.True(t, common.IsFetchError(errs[0]))
}

func TestResolver_CountryChangePopulatesStates(t *testing.T) {
	r, _ := newTestResolver(newFakeSource())
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.Wait()

	view := r.Snapshot()
	require.NotNil(t, view.Selection.CountryID)
	assert.Equal(t, 1, *view.Selection.CountryID)
	assert.Equal(t, []Item{{ID: 10, Name: "California"}, {ID: 11, Name: "Texas"}}, view.States.Items)
	assert.False(t, view.States.Loading)
	assert.Empty(t, view.Cities.Items)
}

func TestResolver_CountryChangeClearsDownstreamSynchronously(t *testing.T) {
	src := newFakeSource()
	r, _ := newTestResolver(src)
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.Wait()
	require.NoError(t, r.OnStateChanged(ctx, id(10)))
	r.Wait()
	require.NoError(t, r.OnCityChanged(id(100)))

	release := src.gate("states/2")
	r.OnCountryChanged(ctx, id(2))

	// Before the new state list arrives, nothing from USA may remain.
	view := r.Snapshot()
	assert.Nil(t, view.Selection.StateID)
	assert.Nil(t, view.Selection.CityID)
	assert.Empty(t, view.States.Items)
	assert.True(t, view.States.Loading)
	assert.Empty(t, view.Cities.Items)

	close(release)
	r.Wait()
	assert.Equal(t, []Item{{ID: 20, Name: "Ontario"}, {ID: 21, Name: "Quebec"}}, r.Snapshot().States.Items)
}

func TestResolver_StaleStateResponseIsDiscarded(t *testing.T) {
	src := newFakeSource()
	usa := src.gate("states/1")
	canada := src.gate("states/2")
	r, _ := newTestResolver(src)
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.OnCountryChanged(ctx, id(2))

	// Canada answers first, then the abandoned USA request resolves.
	close(canada)
	require.Eventually(t, func() bool {
		return len(r.Snapshot().States.Items) == 2
	}, time.Second, 5*time.Millisecond)
	close(usa)
	r.Wait()

	view := r.Snapshot()
	assert.Equal(t, []Item{{ID: 20, Name: "Ontario"}, {ID: 21, Name: "Quebec"}}, view.States.Items)
	for _, it := range view.States.Items {
		assert.NotEqual(t, "California", it.Name)
		assert.NotEqual(t, "Texas", it.Name)
	}
}

func TestResolver_StaleResponseArrivingLastIsDiscarded(t *testing.T) {
	src := newFakeSource()
	src.ignoreCancel = true
	usa := src.gate("states/1")
	r, _ := newTestResolver(src)
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.OnCountryChanged(ctx, id(2))
	require.Eventually(t, func() bool {
		return len(r.Snapshot().States.Items) == 2
	}, time.Second, 5*time.Millisecond)

	close(usa)
	r.Wait()
	assert.Equal(t, []Item{{ID: 20, Name: "Ontario"}, {ID: 21, Name: "Quebec"}}, r.Snapshot().States.Items)
}

func TestResolver_SameCountryIsNoOp(t *testing.T) {
	src := newFakeSource()
	r, _ := newTestResolver(src)
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.Wait()
	require.NoError(t, r.OnStateChanged(ctx, id(10)))
	r.Wait()

	r.OnCountryChanged(ctx, id(1))
	r.Wait()

	view := r.Snapshot()
	require.NotNil(t, view.Selection.StateID)
	assert.Equal(t, 10, *view.Selection.StateID)
	assert.NotEmpty(t, view.Cities.Items)
	assert.Equal(t, []string{"states/1", "cities/10"}, src.callLog())
}

func TestResolver_ClearingCountryEmptiesEverything(t *testing.T) {
	r, _ := newTestResolver(newFakeSource())
	ctx := context.Background()

	r.OnCountryChanged(ctx, id(1))
	r.Wait()
	require.NoError(t, r.OnStateChanged(ctx, id(11)))
	r.Wait()

	r.OnCountryChanged(ctx, nil)
	r.Wait()

	view := r.Snapshot()
	assert.Nil(t, view.Selection.CountryID)
	assert.Nil(t, view.Selection.StateID)
	assert.Empty(t, view.States.Items)
	assert.Empty(t, view.Cities.Items)
	assert.False(t, r.StateEnabled())
	assert.False(t, r.CityEnabled())
}

func TestResolver_StateWithoutCountryIsRejected(t *testing.T) {
	src := newFakeSource()
	r, _ := newTestResolver(src)

	err := r.OnStateChanged(context.Background(), id(10))
	assert.ErrorIs(t, err, ErrCountryNotSelected)
	r.Wait()

	view := r.Snapshot()
	assert.Nil(t, view.Selection.StateID)
	assert.Empty(t, view.Cities.Items)
	assert.Empty(t, src.callLog())
}

func TestResolver_CityWithoutStateIsRejected(t *testing.T) {
	src := newFakeSource()
	r, _ := newTestResolver(src)
	ctx := context.Background()

	assert.False(t, r.CityEnabled())
	assert.ErrorIs(t, r.OnCityChanged(id(100)), ErrStateNotSelected)

	r.OnCountryChanged(ctx, id(1))
	r.Wait()
	assert.False(t, r.CityEnabled())
	assert.ErrorIs(t, r.OnCityChanged(id(100)), ErrStateNotSelected)

	view := r.Snapshot()
	assert.Nil(t, view.Selection.CityID)
	for _, call := range src.callLog() {
		assert.NotContains(t, call, "cities")
	}
}

func TestResolver_StateFetchFailureLeavesListEmpty(t *testing.T) {
	src := newFakeSource()
	src.failures["states/1"] = errors.New("unavailable")
	r, n := newTestResolver(src)

	r.OnCountryChanged(context.Background(), id(1))
	r.Wait()

	view := r.Snapshot()
	assert.Empty(t, view.States.Items)
	assert.False(t, view.States.Loading)
	require.NotNil(t, view.Selection.CountryID)

	errs := n.all()
	require.Len(t, errs, 1)
	var fe *common.FetchError
	require.ErrorAs(t, errs[0], &fe)
	assert.Equal(t, "states", fe.Resource)
}

func TestResolver_InvariantAfterRandomSequence(t *testing.T) {
	r, _ := newTestResolver(newFakeSource())
	ctx := context.Background()

	steps := []func(){
		func() { r.OnCountryChanged(ctx, id(1)) },
		func() { _ = r.OnStateChanged(ctx, id(10)) },
		func() { r.OnCountryChanged(ctx, id(2)) },
		func() { _ = r.OnStateChanged(ctx, id(20)) },
		func() { _ = r.OnStateChanged(ctx, nil) },
		func() { r.OnCountryChanged(ctx, nil) },
		func() { _ = r.OnStateChanged(ctx, id(11)) },
		func() { r.OnCountryChanged(ctx, id(1)) },
		func() { _ = r.OnStateChanged(ctx, id(11)) },
	}
	for _, step := range steps {
		step()
		r.Wait()
		view := r.Snapshot()
		if view.Selection.CountryID == nil {
			assert.Empty(t, view.States.Items)
		}
		if view.Selection.StateID == nil {
			assert.Empty(t, view.Cities.Items)
		}
	}
	view := r.Snapshot()
	require.NotNil(t, view.Selection.StateID)
	assert.Equal(t, 11, *view.Selection.StateID)
	assert.Equal(t, []Item{{ID: 110, Name: "Austin"}}, view.Cities.Items)
}

func TestResolver_Prefill(t *testing.T) {
	src := newFakeSource()
	r, n := newTestResolver(src)

	sel, err := r.Prefill(context.Background(), NamedLocation{Country: "USA", State: "Texas", City: "Austin"})
	require.NoError(t, err)
	assert.Equal(t, 1, *sel.CountryID)
	assert.Equal(t, 11, *sel.StateID)
	assert.Equal(t, 110, *sel.CityID)
	assert.Equal(t, []string{"countries", "states/1", "cities/11"}, src.callLog())

	view := r.Snapshot()
	assert.Len(t, view.States.Items, 2)
	assert.Len(t, view.Cities.Items, 1)
	assert.Empty(t, n.all())
}

func TestResolver_PrefillSelectsEachLevelAsItIsPublished(t *testing.T) {
	src := newFakeSource()
	release := src.gate("cities/11")
	r, _ := newTestResolver(src)

	done := make(chan error, 1)
	go func() {
		_, err := r.Prefill(context.Background(), NamedLocation{Country: "USA", State: "Texas", City: "Austin"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(src.callLog()) == 3
	}, time.Second, 5*time.Millisecond)

	view := r.Snapshot()
	require.NotNil(t, view.Selection.CountryID)
	assert.Equal(t, 1, *view.Selection.CountryID)
	assert.Len(t, view.States.Items, 2)
	require.NotNil(t, view.Selection.StateID, "a published states list has its state selected")
	assert.Equal(t, 11, *view.Selection.StateID)
	assert.Nil(t, view.Selection.CityID)
	assert.True(t, view.Cities.Loading)

	close(release)
	require.NoError(t, <-done)
	view = r.Snapshot()
	require.NotNil(t, view.Selection.CityID)
	assert.Equal(t, 110, *view.Selection.CityID)
}

func TestResolver_PrefillUnknownNameFails(t *testing.T) {
	src := newFakeSource()
	r, n := newTestResolver(src)

	_, err := r.Prefill(context.Background(), NamedLocation{Country: "USA", State: "Nevada", City: "Reno"})
	require.ErrorIs(t, err, ErrNameNotFound)
	assert.Contains(t, err.Error(), "Nevada")
	assert.Equal(t, []string{"countries", "states/1"}, src.callLog())

	view := r.Snapshot()
	assert.Nil(t, view.Selection.CountryID)
	assert.Empty(t, view.States.Items)
	assert.Empty(t, view.Cities.Items)
	assert.Len(t, n.all(), 1)
}

func TestResolver_CloseDiscardsInFlight(t *testing.T) {
	src := newFakeSource()
	src.gate("states/1")
	r, _ := newTestResolver(src)

	r.OnCountryChanged(context.Background(), id(1))
	r.Close()

	view := r.Snapshot()
	assert.Nil(t, view.Selection.CountryID)
	assert.Empty(t, view.States.Items)
	assert.False(t, view.States.Loading)
}
