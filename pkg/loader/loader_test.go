package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websublime/vite-open-api-server-sub004/pkg/executor"
	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func handlerContext(s *store.Store) *executor.Context {
	return &executor.Context{
		Ctx:     context.Background(),
		Request: &Request{},
		Store:   s,
		Faker:   faker.New(),
		Log:     logging.Nop(),
	}
}

// Request aliases the executor request for test brevity.
type Request = executor.Request

func TestLoadHandlers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pets.handler.js", `
module.exports = {
  listPets: function(ctx) {
    return ctx.store.list("Pet");
  },
  createPet: function(ctx) {
    var created = ctx.store.create("Pet", ctx.request.body);
    return { status: 201, data: created };
  }
};`)

	l := New([]string{dir}, nil, logging.Nop())
	res := l.Load()
	require.Empty(t, res.Errors)
	require.Len(t, res.Handlers, 2)
	assert.True(t, res.HasHandler("listPets"))
	assert.False(t, res.HasHandler("deletePet"))

	s := store.New(map[string]store.SchemaConfig{"Pet": {IDField: "id"}})
	hctx := handlerContext(s)
	hctx.Request = &Request{Method: "POST", Path: "/pets", Body: map[string]any{"id": "p1", "name": "Rex"}}

	resp := executor.Execute(hctx, "createPet", res.Handlers["createPet"])
	assert.Equal(t, 201, resp.Status)
	rec, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Rex", rec["name"])
	assert.Equal(t, 1, s.Count("Pet"))
}

func TestHandlerRawReturn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "echo.handler.js", `
exports.echo = function(ctx) {
  return { message: "hello", status: "active" };
};`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	require.Empty(t, res.Errors)

	// A payload with a non-numeric "status" field stays a raw body.
	resp := executor.Execute(handlerContext(store.New(nil)), "echo", res.Handlers["echo"])
	assert.Equal(t, 200, resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "hello", data["message"])
	assert.Equal(t, "active", data["status"])
}

func TestHandlerStructuredHeaders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "h.handler.js", `
exports.op = function(ctx) {
  return { status: 202, body: "queued", headers: { "X-Queue": "default" } };
};`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	resp := executor.Execute(handlerContext(store.New(nil)), "op", res.Handlers["op"])
	assert.Equal(t, 202, resp.Status)
	assert.Equal(t, "queued", resp.Data)
	assert.Equal(t, "default", resp.Headers["X-Queue"])
}

func TestHandlerThrowContained(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.handler.js", `
exports.explode = function(ctx) {
  throw new Error("kaboom");
};`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	resp := executor.Execute(handlerContext(store.New(nil)), "explode", res.Handlers["explode"])
	require.Equal(t, 500, resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Handler execution failed", data["error"])
	assert.Contains(t, data["message"], "kaboom")
}

func TestInvalidModuleIsolated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.handler.js", `this is not javascript {{{`)
	writeFile(t, dir, "good.handler.js", `exports.ok = function(ctx) { return 1; };`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].File, "broken.handler.js")
	assert.True(t, res.HasHandler("ok"))
}

func TestNonFunctionExportRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.handler.js", `
exports.good = function(ctx) { return 1; };
exports.bad = 42;`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Reason, "not a function")
	assert.False(t, res.HasHandler("good"))
}

func TestLastWinsOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.handler.js", `exports.op = function(ctx) { return "first"; };`)
	writeFile(t, dir, "b.handler.js", `exports.op = function(ctx) { return "second"; };`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	resp := executor.Execute(handlerContext(store.New(nil)), "op", res.Handlers["op"])
	assert.Equal(t, "second", resp.Data)
}

func TestNestedDirectoriesScanned(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nested/deep/x.handler.js", `exports.deepOp = function(ctx) { return true; };`)

	res := New([]string{dir}, nil, logging.Nop()).Load()
	assert.True(t, res.HasHandler("deepOp"))
}

func TestStaticSeed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pets.seed.js", `
module.exports = {
  Pet: [
    { id: "p1", name: "Rex" },
    { id: "p2", name: "Bella" }
  ]
};`)

	res := New(nil, []string{dir}, logging.Nop()).Load()
	require.Empty(t, res.Errors)
	seed, ok := res.Seeds["Pet"]
	require.True(t, ok)

	records, err := seed(faker.New())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Rex", records[0]["name"])

	// Mutating a returned record must not leak into later reseeds.
	records[0]["name"] = "Mutated"
	again, err := seed(faker.New())
	require.NoError(t, err)
	assert.Equal(t, "Rex", again[0]["name"])
}

func TestFactorySeed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.seed.js", `
module.exports = {
  User: function(faker) {
    var users = [];
    for (var i = 0; i < 3; i++) {
      users.push({ id: faker.uuid(), email: faker.email() });
    }
    return users;
  }
};`)

	res := New(nil, []string{dir}, logging.Nop()).Load()
	require.Empty(t, res.Errors)

	records, err := res.Seeds["User"](faker.New())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Contains(t, records[0]["email"], "@")
}

func TestSeedWrongShape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.seed.js", `module.exports = { Pet: "not an array" };`)

	res := New(nil, []string{dir}, logging.Nop()).Load()
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Reason, "array")
}

func TestReloadSwapsGeneration(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "v.handler.js", `exports.op = function(ctx) { return "v1"; };`)

	l := New([]string{dir}, nil, logging.Nop())
	l.Load()
	first := l.Current()
	assert.True(t, first.HasHandler("op"))

	require.NoError(t, os.WriteFile(path, []byte(`exports.other = function(ctx) { return "v2"; };`), 0o644))
	l.Load()

	assert.False(t, l.Current().HasHandler("op"))
	assert.True(t, l.Current().HasHandler("other"))
	// The old generation keeps its view.
	assert.True(t, first.HasHandler("op"))
}
