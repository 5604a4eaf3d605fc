// Package location keeps a country → state → city selection and its three
// dropdown lists consistent while the user edits a form.
package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"guestreport_client/internal/common"

	"go.uber.org/zap"
)

// Item is one dropdown entry. Order is the server's response order.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DropdownList is one level's options.
type DropdownList struct {
	Items   []Item `json:"items"`
	Loading bool   `json:"loading"`
}

// Selection holds the chosen ids. StateID is only set with CountryID, and
// CityID only with StateID.
type Selection struct {
	CountryID *int `json:"countryId,omitempty"`
	StateID   *int `json:"stateId,omitempty"`
	CityID    *int `json:"cityId,omitempty"`
}

// View is a consistent copy of the resolver state.
type View struct {
	Selection Selection    `json:"selection"`
	Countries DropdownList `json:"countries"`
	States    DropdownList `json:"states"`
	Cities    DropdownList `json:"cities"`
}

var (
	// ErrCountryNotSelected rejects a state selection while no country is selected.
	ErrCountryNotSelected = errors.New("location: select a country first")
	// ErrStateNotSelected rejects a city selection while no state is selected.
	ErrStateNotSelected = errors.New("location: select a state first")
	// ErrNameNotFound is returned by Prefill when a stored name has no match.
	ErrNameNotFound = errors.New("location: name not found")
	// ErrSuperseded is returned by Prefill when the user changed the selection meanwhile.
	ErrSuperseded = errors.New("location: prefill superseded by a newer selection")
)

// Notifier receives non-blocking, user-facing failures.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }

// level tracks the in-flight fetch for one list. gen is bumped whenever the
// list is invalidated; a fetch result is applied only if its gen is current.
type level struct {
	list   DropdownList
	gen    uint64
	cancel context.CancelFunc
}

func (l *level) reset() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.list = DropdownList{}
}

// Resolver is the Cascading Location Resolver for one form instance.
type Resolver struct {
	mu     sync.Mutex
	src    Source
	notify Notifier
	logger *zap.Logger

	sel       Selection
	countries level
	states    level
	cities    level

	wg sync.WaitGroup
}

// NewResolver creates a Resolver. notify may be nil.
func NewResolver(src Source, notify Notifier, logger *zap.Logger) *Resolver {
	if notify == nil {
		notify = NotifierFunc(func(error) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{src: src, notify: notify, logger: logger.Named("location")}
}

// LoadCountries fetches the country list and returns it once the fetch is done.
// On failure the list stays empty and the failure goes to the Notifier.
func (r *Resolver) LoadCountries(ctx context.Context) DropdownList {
	r.mu.Lock()
	r.countries.reset()
	r.countries.list.Loading = true
	gen := r.countries.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	r.countries.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	items, err := r.src.Countries(fetchCtx)

	r.mu.Lock()
	if gen != r.countries.gen {
		list := copyList(r.countries.list)
		r.mu.Unlock()
		return list
	}
	r.countries.cancel = nil
	r.countries.list.Loading = false
	if err == nil {
		r.countries.list.Items = items
	}
	list := copyList(r.countries.list)
	r.mu.Unlock()

	if err != nil {
		r.fail("countries", err)
	}
	return list
}

// OnCountryChanged records a new country (nil clears it). The state and city
// selections and lists are cleared before this returns; the state list for
// the new country is fetched in the background.
func (r *Resolver) OnCountryChanged(ctx context.Context, countryID *int) {
	r.mu.Lock()
	if sameID(r.sel.CountryID, countryID) {
		r.mu.Unlock()
		return
	}
	r.sel.CountryID = cloneID(countryID)
	r.sel.StateID = nil
	r.sel.CityID = nil
	r.states.reset()
	r.cities.reset()
	if countryID == nil {
		r.mu.Unlock()
		return
	}
	id := *countryID
	fetchCtx := r.beginLocked(ctx, &r.states)
	gen := r.states.gen
	r.mu.Unlock()

	go r.fetch(fetchCtx, &r.states, gen, "states", func(c context.Context) ([]Item, error) {
		return r.src.States(c, id)
	})
}

// OnStateChanged records a new state (nil clears it). It is rejected with
// ErrCountryNotSelected when no country is selected.
func (r *Resolver) OnStateChanged(ctx context.Context, stateID *int) error {
	r.mu.Lock()
	if stateID != nil && r.sel.CountryID == nil {
		r.mu.Unlock()
		r.logger.Debug("State selection rejected, no country selected", zap.Int("state_id", *stateID))
		return ErrCountryNotSelected
	}
	if sameID(r.sel.StateID, stateID) {
		r.mu.Unlock()
		return nil
	}
	r.sel.StateID = cloneID(stateID)
	r.sel.CityID = nil
	r.cities.reset()
	if stateID == nil {
		r.mu.Unlock()
		return nil
	}
	id := *stateID
	fetchCtx := r.beginLocked(ctx, &r.cities)
	gen := r.cities.gen
	r.mu.Unlock()

	go r.fetch(fetchCtx, &r.cities, gen, "cities", func(c context.Context) ([]Item, error) {
		return r.src.Cities(c, id)
	})
	return nil
}

// OnCityChanged records the city. It is rejected with ErrStateNotSelected
// when no state is selected.
func (r *Resolver) OnCityChanged(cityID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cityID != nil && r.sel.StateID == nil {
		return ErrStateNotSelected
	}
	r.sel.CityID = cloneID(cityID)
	return nil
}

// CityEnabled reports whether the city control accepts input.
func (r *Resolver) CityEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel.StateID != nil
}

// StateEnabled reports whether the state control accepts input.
func (r *Resolver) StateEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel.CountryID != nil
}

// Snapshot returns a copy of the current selection and lists.
func (r *Resolver) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return View{
		Selection: Selection{
			CountryID: cloneID(r.sel.CountryID),
			StateID:   cloneID(r.sel.StateID),
			CityID:    cloneID(r.sel.CityID),
		},
		Countries: copyList(r.countries.list),
		States:    copyList(r.states.list),
		Cities:    copyList(r.cities.list),
	}
}

// Wait blocks until every background fetch has settled.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels in-flight fetches and discards the form state.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.sel = Selection{}
	r.countries.reset()
	r.states.reset()
	r.cities.reset()
	r.mu.Unlock()
	r.wg.Wait()
}

// NamedLocation is a persisted record's location, stored by name.
type NamedLocation struct {
	Country string
	State   string
	City    string
}

// Prefill resolves a stored record's names into ids for an edit form. The
// three lists are fetched in dependency order and each id is selected as its
// list is published, so a list is never visible without its parent selected.
// If any name has no exact match the whole prefill fails and the selection is
// left empty.
func (r *Resolver) Prefill(ctx context.Context, loc NamedLocation) (Selection, error) {
	r.mu.Lock()
	r.sel = Selection{}
	r.countries.reset()
	r.states.reset()
	r.cities.reset()
	r.countries.list.Loading = true
	r.states.list.Loading = true
	r.cities.list.Loading = true
	gens := [3]uint64{r.countries.gen, r.states.gen, r.cities.gen}
	r.mu.Unlock()

	sel, err := r.prefill(ctx, loc, gens)
	if err != nil {
		r.mu.Lock()
		if r.current(gens) {
			r.states.reset()
			r.cities.reset()
			r.countries.list.Loading = false
			r.sel = Selection{}
		}
		r.mu.Unlock()
		if !errors.Is(err, ErrSuperseded) {
			r.logger.Warn("Failed to prefill location", zap.Error(err))
			r.notify.Notify(err)
		}
		return Selection{}, err
	}
	return sel, nil
}

func (r *Resolver) prefill(ctx context.Context, loc NamedLocation, gens [3]uint64) (Selection, error) {
	countries, err := r.src.Countries(ctx)
	if err != nil {
		return Selection{}, &common.FetchError{Resource: "countries", Err: err}
	}
	countryID, found := findByName(countries, loc.Country)
	if err := r.applyPrefill(gens, func() {
		r.countries.list = DropdownList{Items: countries}
		if found {
			r.sel.CountryID = cloneID(&countryID)
		}
	}); err != nil {
		return Selection{}, err
	}
	if !found {
		return Selection{}, fmt.Errorf("initial country %q: %w", loc.Country, ErrNameNotFound)
	}

	states, err := r.src.States(ctx, countryID)
	if err != nil {
		return Selection{}, &common.FetchError{Resource: "states", Err: err}
	}
	stateID, found := findByName(states, loc.State)
	if err := r.applyPrefill(gens, func() {
		r.states.list = DropdownList{Items: states}
		if found {
			r.sel.StateID = cloneID(&stateID)
		}
	}); err != nil {
		return Selection{}, err
	}
	if !found {
		return Selection{}, fmt.Errorf("initial state %q: %w", loc.State, ErrNameNotFound)
	}

	cities, err := r.src.Cities(ctx, stateID)
	if err != nil {
		return Selection{}, &common.FetchError{Resource: "cities", Err: err}
	}
	cityID, found := findByName(cities, loc.City)
	if !found {
		return Selection{}, fmt.Errorf("initial city %q: %w", loc.City, ErrNameNotFound)
	}

	sel := Selection{CountryID: &countryID, StateID: &stateID, CityID: &cityID}
	if err := r.applyPrefill(gens, func() {
		r.cities.list = DropdownList{Items: cities}
		r.sel.CityID = cloneID(sel.CityID)
	}); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func (r *Resolver) applyPrefill(gens [3]uint64, apply func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current(gens) {
		return ErrSuperseded
	}
	apply()
	return nil
}

func (r *Resolver) current(gens [3]uint64) bool {
	return gens == [3]uint64{r.countries.gen, r.states.gen, r.cities.gen}
}

// beginLocked marks lvl as loading and returns the context for its fetch.
// r.mu must be held.
func (r *Resolver) beginLocked(ctx context.Context, lvl *level) context.Context {
	fetchCtx, cancel := context.WithCancel(ctx)
	lvl.cancel = cancel
	lvl.list.Loading = true
	r.wg.Add(1)
	return fetchCtx
}

func (r *Resolver) fetch(ctx context.Context, lvl *level, gen uint64, resource string, load func(context.Context) ([]Item, error)) {
	defer r.wg.Done()
	items, err := load(ctx)

	r.mu.Lock()
	if gen != lvl.gen {
		r.mu.Unlock()
		r.logger.Debug("Discarding stale list response", zap.String("resource", resource))
		return
	}
	if lvl.cancel != nil {
		lvl.cancel()
		lvl.cancel = nil
	}
	lvl.list.Loading = false
	if err == nil {
		lvl.list.Items = items
	}
	r.mu.Unlock()

	if err != nil {
		r.fail(resource, err)
	}
}

func (r *Resolver) fail(resource string, err error) {
	r.logger.Warn("Failed to load dropdown list", zap.String("resource", resource), zap.Error(err))
	r.notify.Notify(&common.FetchError{Resource: resource, Err: err})
}

func findByName(items []Item, name string) (int, bool) {
	for _, it := range items {
		if it.Name == name {
			return it.ID, true
		}
	}
	return 0, false
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyList(l DropdownList) DropdownList {
	out := DropdownList{Loading: l.Loading}
	if len(l.Items) > 0 {
		out.Items = append([]Item(nil), l.Items...)
	}
	return out
}
