package faker

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// maxDepth guards against cyclic or pathological schemas during generation.
const maxDepth = 8

// FromSchema generates a fake value matching an OpenAPI schema. Examples,
// defaults, and enums win over synthesis; otherwise the value is built from
// the schema type with format and field-name heuristics.
func (f *Faker) FromSchema(ref *openapi3.SchemaRef) any {
	return f.fromSchema(ref, "", 0)
}

// FromSchemaNamed is FromSchema with the owning property name available for
// field-name heuristics ("email", "price", ...).
func (f *Faker) FromSchemaNamed(ref *openapi3.SchemaRef, name string) any {
	return f.fromSchema(ref, name, 0)
}

func (f *Faker) fromSchema(ref *openapi3.SchemaRef, name string, depth int) any {
	if ref == nil || ref.Value == nil || depth > maxDepth {
		return nil
	}
	schema := ref.Value

	if schema.Example != nil {
		return schema.Example
	}
	if schema.Default != nil {
		return schema.Default
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[f.intN(len(schema.Enum))]
	}

	if len(schema.AllOf) > 0 {
		merged := make(map[string]any)
		for _, sub := range schema.AllOf {
			if m, ok := f.fromSchema(sub, name, depth+1).(map[string]any); ok {
				for k, v := range m {
					merged[k] = v
				}
			}
		}
		return merged
	}
	if len(schema.OneOf) > 0 {
		return f.fromSchema(schema.OneOf[f.intN(len(schema.OneOf))], name, depth+1)
	}
	if len(schema.AnyOf) > 0 {
		return f.fromSchema(schema.AnyOf[0], name, depth+1)
	}

	switch schemaType(schema) {
	case "object":
		obj := make(map[string]any, len(schema.Properties))
		for propName, propRef := range schema.Properties {
			obj[propName] = f.fromSchema(propRef, propName, depth+1)
		}
		return obj
	case "array":
		if schema.Items == nil {
			return []any{}
		}
		n := 2
		if schema.MinItems > 0 {
			n = int(schema.MinItems)
		}
		items := make([]any, n)
		for i := range items {
			items[i] = f.fromSchema(schema.Items, name, depth+1)
		}
		return items
	case "integer":
		min, max := 1, 1000
		if schema.Min != nil {
			min = int(*schema.Min)
		}
		if schema.Max != nil {
			max = int(*schema.Max)
		}
		return f.Int(min, max)
	case "number":
		min, max := 0.0, 1000.0
		if schema.Min != nil {
			min = *schema.Min
		}
		if schema.Max != nil {
			max = *schema.Max
		}
		return f.Float(min, max)
	case "boolean":
		return f.Bool()
	case "string":
		return f.stringForSchema(schema, name)
	default:
		return nil
	}
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type != nil {
		types := schema.Type.Slice()
		if len(types) > 0 {
			// A nullable type pair like ["string","null"] generates the
			// non-null variant.
			for _, t := range types {
				if t != "null" {
					return t
				}
			}
			return types[0]
		}
	}
	if len(schema.Properties) > 0 {
		return "object"
	}
	if schema.Items != nil {
		return "array"
	}
	return "string"
}

// stringForSchema picks a realistic string: format first, then field-name
// heuristics, then lorem.
func (f *Faker) stringForSchema(schema *openapi3.Schema, name string) string {
	switch schema.Format {
	case "email":
		return f.Email()
	case "uuid":
		return f.UUID()
	case "uri", "url":
		return f.URL()
	case "date":
		return f.DatePast()[:10]
	case "date-time":
		return f.DateRecent()
	case "hostname":
		return "example.com"
	case "ipv4":
		return f.IPv4()
	case "password":
		return "********"
	}

	lower := strings.ToLower(name)
	switch {
	case lower == "id" || strings.HasSuffix(lower, "id"):
		return f.UUID()
	case strings.Contains(lower, "email"):
		return f.Email()
	case strings.Contains(lower, "firstname") || strings.Contains(lower, "first_name"):
		return f.FirstName()
	case strings.Contains(lower, "lastname") || strings.Contains(lower, "last_name"):
		return f.LastName()
	case strings.Contains(lower, "username"):
		return f.UserName()
	case strings.Contains(lower, "name"):
		return f.FullName()
	case strings.Contains(lower, "phone"):
		return f.Phone()
	case strings.Contains(lower, "city"):
		return f.City()
	case strings.Contains(lower, "country"):
		return f.Country()
	case strings.Contains(lower, "street") || strings.Contains(lower, "address"):
		return f.Street()
	case strings.Contains(lower, "company"):
		return f.Company()
	case strings.Contains(lower, "color"):
		return f.Color()
	case strings.Contains(lower, "url") || strings.Contains(lower, "link"):
		return f.URL()
	case strings.Contains(lower, "description") || strings.Contains(lower, "summary"):
		return f.Sentence()
	default:
		return f.Word()
	}
}
