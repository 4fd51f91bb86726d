package faker

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaRef(s *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: s}
}

func TestFromSchemaExampleWins(t *testing.T) {
	f := New()
	s := &openapi3.Schema{
		Type:    &openapi3.Types{"string"},
		Example: "fixed",
	}
	assert.Equal(t, "fixed", f.FromSchema(schemaRef(s)))
}

func TestFromSchemaEnum(t *testing.T) {
	f := New()
	s := &openapi3.Schema{
		Type: &openapi3.Types{"string"},
		Enum: []any{"available", "pending", "sold"},
	}
	got := f.FromSchema(schemaRef(s))
	assert.Contains(t, []any{"available", "pending", "sold"}, got)
}

func TestFromSchemaObject(t *testing.T) {
	f := New()
	s := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"id":    schemaRef(&openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}),
			"email": schemaRef(&openapi3.Schema{Type: &openapi3.Types{"string"}}),
			"age":   schemaRef(&openapi3.Schema{Type: &openapi3.Types{"integer"}}),
		},
	}
	obj, ok := f.FromSchema(schemaRef(s)).(map[string]any)
	require.True(t, ok)

	_, err := uuid.Parse(obj["id"].(string))
	assert.NoError(t, err)
	assert.Contains(t, obj["email"].(string), "@")
	assert.IsType(t, 0, obj["age"])
}

func TestFromSchemaArray(t *testing.T) {
	f := New()
	s := &openapi3.Schema{
		Type:     &openapi3.Types{"array"},
		MinItems: 3,
		Items:    schemaRef(&openapi3.Schema{Type: &openapi3.Types{"boolean"}}),
	}
	items, ok := f.FromSchema(schemaRef(s)).([]any)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.IsType(t, true, items[0])
}

func TestFromSchemaIntegerBounds(t *testing.T) {
	f := New()
	min, max := 10.0, 20.0
	s := &openapi3.Schema{Type: &openapi3.Types{"integer"}, Min: &min, Max: &max}
	for i := 0; i < 50; i++ {
		v := f.FromSchema(schemaRef(s)).(int)
		assert.GreaterOrEqual(t, v, 10)
		assert.LessOrEqual(t, v, 20)
	}
}

func TestFromSchemaNullableType(t *testing.T) {
	f := New()
	s := &openapi3.Schema{Type: &openapi3.Types{"null", "integer"}}
	assert.IsType(t, 0, f.FromSchema(schemaRef(s)))
}

func TestFromSchemaAllOfMerge(t *testing.T) {
	f := New()
	s := &openapi3.Schema{
		AllOf: openapi3.SchemaRefs{
			schemaRef(&openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"a": schemaRef(&openapi3.Schema{Type: &openapi3.Types{"string"}}),
				},
			}),
			schemaRef(&openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"b": schemaRef(&openapi3.Schema{Type: &openapi3.Types{"boolean"}}),
				},
			}),
		},
	}
	obj := f.FromSchema(schemaRef(s)).(map[string]any)
	assert.Contains(t, obj, "a")
	assert.Contains(t, obj, "b")
}

func TestFromSchemaNil(t *testing.T) {
	f := New()
	assert.Nil(t, f.FromSchema(nil))
	assert.Nil(t, f.FromSchema(&openapi3.SchemaRef{}))
}

func TestFromSchemaCycleGuard(t *testing.T) {
	f := New()
	node := &openapi3.Schema{Type: &openapi3.Types{"object"}}
	ref := schemaRef(node)
	node.Properties = openapi3.Schemas{"next": ref}

	// Recursion stops at depth instead of hanging.
	obj := f.FromSchema(ref).(map[string]any)
	assert.Contains(t, obj, "next")
}

func TestStringHeuristics(t *testing.T) {
	f := New()
	str := &openapi3.Schema{Type: &openapi3.Types{"string"}}

	email := f.FromSchemaNamed(schemaRef(str), "contactEmail").(string)
	assert.Contains(t, email, "@")

	phone := f.FromSchemaNamed(schemaRef(str), "phoneNumber").(string)
	assert.Contains(t, phone, "+")

	desc := f.FromSchemaNamed(schemaRef(str), "description").(string)
	assert.Contains(t, desc, " ")
}
