package panel

// Counts is the change-tracking state: the number of dirty fields overall
// and per follow-up category.
type Counts struct {
	Total     int `json:"total" yaml:"total"`
	Reload    int `json:"reload" yaml:"reload"`
	Reconnect int `json:"reconnect" yaml:"reconnect"`
	Reset     int `json:"reset" yaml:"reset"`
}

// Tracker keeps a dirty flag per field and adjusts the counters only when
// a flag flips, so repeated edits of the same field are counted once.
type Tracker struct {
	dirty  map[*Field]struct{}
	counts Counts
	flips  uint64
}

// NewTracker returns a tracker with every counter at zero.
func NewTracker() *Tracker {
	return &Tracker{dirty: make(map[*Field]struct{})}
}

// Observe re-evaluates f after a write. Fields without a snapshot and
// display fields are ignored. Fields marked ActionNone keep a dirty flag
// but never move a counter.
func (t *Tracker) Observe(f *Field) {
	if f.Display || !f.hasOriginal {
		return
	}
	_, was := t.dirty[f]
	now := f.differs()
	switch {
	case now && !was:
		t.dirty[f] = struct{}{}
		t.adjust(f.Action, 1)
	case !now && was:
		delete(t.dirty, f)
		t.adjust(f.Action, -1)
	}
}

// Forget drops a field that left the registry, undoing its contribution.
func (t *Tracker) Forget(f *Field) {
	if _, ok := t.dirty[f]; ok {
		delete(t.dirty, f)
		t.adjust(f.Action, -1)
	}
}

func (t *Tracker) adjust(action Action, delta int) {
	if action == ActionNone {
		return
	}
	t.flips++
	t.counts.Total += delta
	switch action {
	case ActionReload:
		t.counts.Reload += delta
	case ActionReconnect:
		t.counts.Reconnect += delta
	case ActionReset:
		t.counts.Reset += delta
	}
}

// Dirty reports the flag of f.
func (t *Tracker) Dirty(f *Field) bool {
	_, ok := t.dirty[f]
	return ok
}

// Flips returns how many times a counted field changed its dirty flag. It
// never goes back, not even on Reset.
func (t *Tracker) Flips() uint64 {
	return t.flips
}

// Counts returns a copy of the counters.
func (t *Tracker) Counts() Counts {
	return t.counts
}

// Reset records the current value of every field as its original and
// clears all flags and counters.
func (t *Tracker) Reset(fields []*Field) {
	for _, f := range fields {
		if f.Display {
			continue
		}
		f.snapshot()
	}
	t.dirty = make(map[*Field]struct{})
	t.counts = Counts{}
}
