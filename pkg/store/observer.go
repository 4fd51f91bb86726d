package store

// Observer defines hooks invoked after store mutations. The server instance
// uses an observer to mirror handler-driven mutations out to inspector
// clients without coupling the store to any wire protocol.
type Observer interface {
	// OnCreate is called after a successful create with the stored record.
	OnCreate(schema string, record Record)

	// OnUpdate is called after a successful update with the merged record.
	OnUpdate(schema string, record Record)

	// OnDelete is called after a successful delete.
	OnDelete(schema string, id any)

	// OnClear is called after a schema's collection is emptied.
	OnClear(schema string)
}

// NoopObserver is an Observer that does nothing.
type NoopObserver struct{}

func (NoopObserver) OnCreate(schema string, record Record) {}
func (NoopObserver) OnUpdate(schema string, record Record) {}
func (NoopObserver) OnDelete(schema string, id any)        {}
func (NoopObserver) OnClear(schema string)                 {}

// FuncObserver adapts plain functions to the Observer interface. Nil fields
// are skipped.
type FuncObserver struct {
	Create func(schema string, record Record)
	Update func(schema string, record Record)
	Delete func(schema string, id any)
	Clear  func(schema string)
}

func (f *FuncObserver) OnCreate(schema string, record Record) {
	if f.Create != nil {
		f.Create(schema, record)
	}
}

func (f *FuncObserver) OnUpdate(schema string, record Record) {
	if f.Update != nil {
		f.Update(schema, record)
	}
}

func (f *FuncObserver) OnDelete(schema string, id any) {
	if f.Delete != nil {
		f.Delete(schema, id)
	}
}

func (f *FuncObserver) OnClear(schema string) {
	if f.Clear != nil {
		f.Clear(schema)
	}
}
