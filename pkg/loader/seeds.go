package loader

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

// loadSeedFile evaluates one *.seed.js module. The export must map schema
// names to either a record array (static seed) or a function taking the
// faker and returning a record array (factory seed).
func loadSeedFile(path string) (map[string]SeedFunc, error) {
	vm, exports, err := evalModule(path)
	if err != nil {
		return nil, err
	}

	keys := exports.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("module exports nothing")
	}

	lock := &vmLock{vm: vm}
	seeds := make(map[string]SeedFunc, len(keys))
	for _, schema := range keys {
		v := exports.Get(schema)

		if fn, ok := goja.AssertFunction(v); ok {
			seeds[schema] = bindSeedFactory(lock, schema, fn)
			continue
		}

		// Static arrays are validated and converted once at load time.
		records, err := toRecords(v.Export())
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", schema, err)
		}
		seeds[schema] = staticSeed(records)
	}
	return seeds, nil
}

// staticSeed returns fresh copies on every call so reseeding starts from
// pristine data even if a previous generation was mutated.
func staticSeed(records []store.Record) SeedFunc {
	return func(*faker.Faker) ([]store.Record, error) {
		out := make([]store.Record, len(records))
		for i, rec := range records {
			cp := make(store.Record, len(rec))
			for k, v := range rec {
				cp[k] = v
			}
			out[i] = cp
		}
		return out, nil
	}
}

func bindSeedFactory(lock *vmLock, schema string, fn goja.Callable) SeedFunc {
	return func(f *faker.Faker) ([]store.Record, error) {
		lock.mu.Lock()
		defer lock.mu.Unlock()

		ret, err := fn(goja.Undefined(), lock.vm.ToValue(fakerScope(f)))
		if err != nil {
			return nil, fmt.Errorf("seed factory for %q: %w", schema, err)
		}
		records, err := toRecords(ret.Export())
		if err != nil {
			return nil, fmt.Errorf("seed factory for %q: %w", schema, err)
		}
		return records, nil
	}
}

func toRecords(v any) ([]store.Record, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of records, got %T", v)
	}
	records := make([]store.Record, 0, len(arr))
	for i, item := range arr {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object, got %T", i, item)
		}
		records = append(records, store.Record(rec))
	}
	return records, nil
}
