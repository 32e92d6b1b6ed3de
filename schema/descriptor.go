package schema

import (
	"slices"
	"sort"
)

// Field is one named, typed entry of a Descriptor.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Nested   *Descriptor // declared sub-structure of a record field, if any
}

// Descriptor is the compiled shape of a record. Fields are kept sorted by
// name so that compiling the same input always yields the same descriptor.
type Descriptor struct {
	Name   string
	Fields []Field
}

// Compile builds a Descriptor from a configured field specification.
//
// fields may be a field→type-name map (values can also be nested maps, which
// compile to record fields with a nested descriptor) or a bare list of field
// names, in which case every field is text. When required is nil every field
// is required; otherwise exactly the listed names are. Required names that are
// not declared are added as required fields of KindAny. Malformed input never
// fails: unrecognized shapes compile to KindAny.
func Compile(name string, fields any, required []string) *Descriptor {
	d := &Descriptor{Name: name}

	switch v := fields.(type) {
	case nil:
	case map[string]any:
		for fname, spec := range v {
			d.Fields = append(d.Fields, compileField(name, fname, spec))
		}
	case map[string]string:
		for fname, tname := range v {
			d.Fields = append(d.Fields, Field{Name: fname, Kind: KindOf(tname)})
		}
	case []string:
		for _, fname := range v {
			d.Fields = append(d.Fields, Field{Name: fname, Kind: KindText})
		}
	case []any:
		for _, item := range v {
			if fname, ok := item.(string); ok {
				d.Fields = append(d.Fields, Field{Name: fname, Kind: KindText})
			}
		}
	}

	d.applyRequired(required)
	d.sortFields()

	return d
}

// CompileJSONSchema builds a Descriptor from a JSON-Schema-like object
// {"properties": {...}, "required": [...]}. Fields absent from the required
// list are optional.
func CompileJSONSchema(name string, obj map[string]any) *Descriptor {
	d := &Descriptor{Name: name}

	props, _ := obj["properties"].(map[string]any)
	for fname, spec := range props {
		d.Fields = append(d.Fields, compileField(name, fname, spec))
	}

	d.applyRequired(stringList(obj["required"]))
	d.sortFields()

	return d
}

// CompileOutput compiles an output structure that is either a JSON-Schema-like
// object (has "properties") or a plain field→type map. For the JSON Schema form
// an inner required list wins over the outer one.
func CompileOutput(name string, structure map[string]any, required []string) *Descriptor {
	if _, ok := structure["properties"]; ok {
		if _, inner := structure["required"]; !inner && required != nil {
			merged := make(map[string]any, len(structure)+1)
			for k, v := range structure {
				merged[k] = v
			}
			merged["required"] = required
			structure = merged
		}
		return CompileJSONSchema(name, structure)
	}
	return Compile(name, structure, required)
}

// CompileContract compiles a structured-output contract. Unlike tool
// schemas, a missing required list means no field is required.
func CompileContract(name string, structure map[string]any, required []string) *Descriptor {
	if required == nil {
		required = []string{}
	}
	return CompileOutput(name, structure, required)
}

func compileField(parent, fname string, spec any) Field {
	f := Field{Name: fname}

	switch s := spec.(type) {
	case string:
		f.Kind = KindOf(s)
	case map[string]any:
		if t, ok := s["type"].(string); ok {
			// JSON Schema property
			f.Kind = KindOf(t)
			if f.Kind == KindRecord {
				if _, ok := s["properties"]; ok {
					f.Nested = CompileJSONSchema(parent+"."+fname, s)
				}
			}
			return f
		}
		f.Kind = KindRecord
		f.Nested = Compile(parent+"."+fname, s, nil)
	case []any, []string:
		f.Kind = KindSequence
	default:
		f.Kind = KindAny
	}

	return f
}

func (d *Descriptor) applyRequired(required []string) {
	if required == nil {
		for i := range d.Fields {
			d.Fields[i].Required = true
		}
		return
	}
	for _, r := range required {
		idx := slices.IndexFunc(d.Fields, func(f Field) bool { return f.Name == r })
		if idx < 0 {
			d.Fields = append(d.Fields, Field{Name: r, Kind: KindAny, Required: true})
			continue
		}
		d.Fields[idx].Required = true
	}
}

func (d *Descriptor) sortFields() {
	sort.Slice(d.Fields, func(i, j int) bool { return d.Fields[i].Name < d.Fields[j].Name })
}

// Field returns the named field.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in descriptor order.
func (d *Descriptor) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Required returns the names of the required fields in descriptor order.
func (d *Descriptor) Required() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Merge returns a copy of d extended with the fields of other that d does
// not already declare.
func (d *Descriptor) Merge(other *Descriptor) *Descriptor {
	out := &Descriptor{Name: d.Name, Fields: slices.Clone(d.Fields)}
	if other == nil {
		return out
	}
	for _, f := range other.Fields {
		if _, exists := out.Field(f.Name); !exists {
			out.Fields = append(out.Fields, f)
		}
	}
	out.sortFields()
	return out
}

// Null returns a record with every declared field set to nil.
func (d *Descriptor) Null() map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Name] = nil
	}
	return out
}

// JSONSchema exports the descriptor as a JSON Schema object suitable for
// model tool parameters and structured output contracts.
func (d *Descriptor) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Fields))
	required := make([]string, 0, len(d.Fields))

	for _, f := range d.Fields {
		var prop map[string]any
		if f.Nested != nil {
			prop = f.Nested.JSONSchema()
		} else {
			prop = map[string]any{}
			if t := f.Kind.JSONType(); t != "" {
				prop["type"] = t
			}
		}
		prop["description"] = f.Name
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
