package model

// Observer receives the change notifications of an [ObjectList].
// Row indexes are inclusive. Callbacks run synchronously on the goroutine
// that invoked the mutating operation
type Observer interface {
	// ListWillReset is called before the whole listing is replaced
	ListWillReset()
	// ListDidReset is called once the new listing is in place
	ListDidReset()
	// RowsInserted is called after rows first..last were added
	RowsInserted(first, last int)
	// RowsRemoved is called after rows first..last were dropped
	RowsRemoved(first, last int)
	// RowChanged is called when the data of a single row changed
	RowChanged(row int)
}

// ObserverFuncs adapts optional callbacks to the [Observer] interface.
// Nil fields are ignored
type ObserverFuncs struct {
	OnListWillReset func()
	OnListDidReset  func()
	OnRowsInserted  func(first, last int)
	OnRowsRemoved   func(first, last int)
	OnRowChanged    func(row int)
}

func (o ObserverFuncs) ListWillReset() {
	if o.OnListWillReset != nil {
		o.OnListWillReset()
	}
}

func (o ObserverFuncs) ListDidReset() {
	if o.OnListDidReset != nil {
		o.OnListDidReset()
	}
}

func (o ObserverFuncs) RowsInserted(first, last int) {
	if o.OnRowsInserted != nil {
		o.OnRowsInserted(first, last)
	}
}

func (o ObserverFuncs) RowsRemoved(first, last int) {
	if o.OnRowsRemoved != nil {
		o.OnRowsRemoved(first, last)
	}
}

func (o ObserverFuncs) RowChanged(row int) {
	if o.OnRowChanged != nil {
		o.OnRowChanged(row)
	}
}

var _ Observer = ObserverFuncs{}

// observers is an ordered subscriber set. Unsubscribing leaves a nil hole so
// indexes handed out earlier stay valid
type observers struct {
	list []Observer
}

func (s *observers) add(o Observer) func() {
	s.list = append(s.list, o)
	idx := len(s.list) - 1
	return func() {
		if idx < len(s.list) {
			s.list[idx] = nil
		}
	}
}

func (s *observers) each(fn func(o Observer)) {
	for _, o := range s.list {
		if o != nil {
			fn(o)
		}
	}
}
