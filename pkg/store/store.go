package store

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/websublime/vite-open-api-server-sub004/internal/id"
)

// Record is a single stored value. Records are arbitrary JSON-shaped objects.
type Record = map[string]any

// SchemaConfig configures per-schema behavior.
type SchemaConfig struct {
	// IDField is the identifier field name. Empty means "id".
	IDField string `json:"idField,omitempty" yaml:"idField,omitempty"`
	// AutoID enables UUID auto-assignment when a created record omits the
	// identifier field. Off by default: silent auto-assignment masks client
	// bugs, so a missing identifier is an error unless opted in.
	AutoID bool `json:"autoId,omitempty" yaml:"autoId,omitempty"`
}

// DefaultIDField is used when a schema has no configured identifier field.
const DefaultIDField = "id"

// collection holds one schema's records in insertion order.
type collection struct {
	cfg   SchemaConfig
	order []string
	byKey map[string]Record
}

func (c *collection) idField() string {
	if c.cfg.IDField != "" {
		return c.cfg.IDField
	}
	return DefaultIDField
}

// Store is the schema-keyed in-memory CRUD engine. One instance exists per
// running spec instance; all access goes through its exported methods.
type Store struct {
	mu        sync.RWMutex
	schemas   map[string]*collection
	configs   map[string]SchemaConfig
	observers []Observer
	suppress  int
}

// New creates an empty Store. Per-schema configuration may be supplied up
// front; schemas not listed use defaults (id field "id", no auto-id).
func New(configs map[string]SchemaConfig) *Store {
	s := &Store{
		schemas: make(map[string]*collection),
		configs: make(map[string]SchemaConfig),
	}
	for name, cfg := range configs {
		s.configs[name] = cfg
	}
	return s
}

// AddObserver registers a mutation hook. Observers are invoked after the
// mutation completes, outside the store lock.
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Bulk runs fn with observer notifications suppressed. Operations that
// announce themselves as a single aggregate event use it so the per-record
// hooks stay quiet. Suppression is store-wide while fn runs.
func (s *Store) Bulk(fn func()) {
	s.mu.Lock()
	s.suppress++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.suppress--
		s.mu.Unlock()
	}()
	fn()
}

// notifiable returns the observers to invoke for a mutation. Callers must
// hold the lock.
func (s *Store) notifiable() []Observer {
	if s.suppress > 0 {
		return nil
	}
	return s.observers
}

// Configure sets the configuration for a schema. Existing records keep
// their identifier keys; Configure is intended for startup wiring.
func (s *Store) Configure(schema string, cfg SchemaConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[schema] = cfg
	if c, ok := s.schemas[schema]; ok {
		c.cfg = cfg
	}
}

// IDField returns the identifier field configured for a schema.
func (s *Store) IDField(schema string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[schema]; ok && cfg.IDField != "" {
		return cfg.IDField
	}
	return DefaultIDField
}

// collectionFor returns the live collection for a schema, creating it on
// first write. Callers must hold the write lock.
func (s *Store) collectionFor(schema string) *collection {
	c, ok := s.schemas[schema]
	if !ok {
		c = &collection{
			cfg:   s.configs[schema],
			byKey: make(map[string]Record),
		}
		s.schemas[schema] = c
	}
	return c
}

// List returns all records for a schema in insertion order. Unknown schemas
// yield an empty slice. The returned records are copies; mutating them does
// not affect the store.
func (s *Store) List(schema string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.schemas[schema]
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, cloneRecord(c.byKey[key]))
	}
	return out
}

// Get looks a record up by its identifier value. Comparison uses the
// identifier's natural JSON value equality: the string "1" and the number 1
// are distinct identifiers.
func (s *Store) Get(schema string, idVal any) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.schemas[schema]
	if !ok {
		return nil, false
	}
	rec, ok := c.byKey[idKey(idVal)]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec), true
}

// Create inserts a record at the end of the schema's collection. It fails
// with KindDuplicateKey if a record with the same identifier exists, and
// with KindMissingID if the record omits the identifier field and the
// schema is not configured for auto-id. The stored record (including any
// auto-assigned identifier) is returned.
func (s *Store) Create(schema string, rec Record) (Record, error) {
	s.mu.Lock()
	c := s.collectionFor(schema)
	field := c.idField()

	stored := cloneRecord(rec)
	idVal, present := stored[field]
	if !present || idVal == nil {
		if !c.cfg.AutoID {
			s.mu.Unlock()
			return nil, &Error{Kind: KindMissingID, Schema: schema}
		}
		idVal = id.UUID()
		stored[field] = idVal
	}

	key := idKey(idVal)
	if _, exists := c.byKey[key]; exists {
		s.mu.Unlock()
		return nil, &Error{Kind: KindDuplicateKey, Schema: schema, ID: idVal}
	}

	c.byKey[key] = stored
	c.order = append(c.order, key)
	obs := s.notifiable()
	s.mu.Unlock()

	result := cloneRecord(stored)
	for _, o := range obs {
		o.OnCreate(schema, result)
	}
	return result, nil
}

// Update shallow-merges patch into the record with the given identifier:
// fields named in patch overwrite the existing values, all other fields are
// untouched. Fails with KindNotFound if no record has that identifier.
// Changing the identifier field through a patch re-keys the record.
func (s *Store) Update(schema string, idVal any, patch Record) (Record, error) {
	s.mu.Lock()
	c, ok := s.schemas[schema]
	if !ok {
		s.mu.Unlock()
		return nil, &Error{Kind: KindNotFound, Schema: schema, ID: idVal}
	}

	key := idKey(idVal)
	existing, ok := c.byKey[key]
	if !ok {
		s.mu.Unlock()
		return nil, &Error{Kind: KindNotFound, Schema: schema, ID: idVal}
	}

	merged := cloneRecord(existing)
	for k, v := range patch {
		merged[k] = v
	}

	newKey := key
	if newID, ok := merged[c.idField()]; ok {
		newKey = idKey(newID)
	}
	if newKey != key {
		if _, exists := c.byKey[newKey]; exists {
			s.mu.Unlock()
			return nil, &Error{Kind: KindDuplicateKey, Schema: schema, ID: merged[c.idField()]}
		}
		delete(c.byKey, key)
		for i, k := range c.order {
			if k == key {
				c.order[i] = newKey
				break
			}
		}
	}
	c.byKey[newKey] = merged
	obs := s.notifiable()
	s.mu.Unlock()

	result := cloneRecord(merged)
	for _, o := range obs {
		o.OnUpdate(schema, result)
	}
	return result, nil
}

// Delete removes the record with the given identifier and reports whether a
// record was removed. Delete never fails; deleting twice returns false the
// second time.
func (s *Store) Delete(schema string, idVal any) bool {
	s.mu.Lock()
	c, ok := s.schemas[schema]
	if !ok {
		s.mu.Unlock()
		return false
	}
	key := idKey(idVal)
	if _, ok := c.byKey[key]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(c.byKey, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	obs := s.notifiable()
	s.mu.Unlock()

	for _, o := range obs {
		o.OnDelete(schema, idVal)
	}
	return true
}

// Clear empties one schema's collection. No-op when the schema has no
// records.
func (s *Store) Clear(schema string) {
	s.mu.Lock()
	c, ok := s.schemas[schema]
	if ok {
		c.order = nil
		c.byKey = make(map[string]Record)
	}
	obs := s.notifiable()
	s.mu.Unlock()

	if ok {
		for _, o := range obs {
			o.OnClear(schema)
		}
	}
}

// ClearAll empties every schema's collection. Used by reseed.
func (s *Store) ClearAll() {
	s.mu.Lock()
	cleared := make([]string, 0, len(s.schemas))
	for name, c := range s.schemas {
		if len(c.order) > 0 {
			cleared = append(cleared, name)
		}
		c.order = nil
		c.byKey = make(map[string]Record)
	}
	obs := s.notifiable()
	s.mu.Unlock()

	for _, name := range cleared {
		for _, o := range obs {
			o.OnClear(name)
		}
	}
}

// Count returns the number of records in a schema.
func (s *Store) Count(schema string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.schemas[schema]; ok {
		return len(c.order)
	}
	return 0
}

// Schemas returns the names of all schemas that currently hold records or
// have been written to at least once.
func (s *Store) Schemas() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	return names
}

// idKey normalizes an identifier value into a map key that preserves JSON
// value-equality semantics: numbers compare numerically regardless of Go
// type, and never collide with strings.
func idKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return "n:" + strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return "n:" + strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(val), 'f', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(val)
	default:
		return fmt.Sprintf("x:%v", val)
	}
}

// cloneRecord makes a shallow copy of a record. Top-level fields are copied;
// nested values are shared, which is acceptable because records cross the
// store boundary as JSON and handlers treat them as values.
func cloneRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
