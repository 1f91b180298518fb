package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// JSON is a schema document. It covers the subset of JSON Schema needed to describe TRAPI query graph
// components: typed scalars, arrays, objects, enums, nullable values and
// anyOf alternatives.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	AnyOf       []JSON          `json:"anyOf,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
	MinItems    *int            `json:"minItems,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Ref         string          `json:"$ref,omitempty"`

	// Nullable allows an explicit null in place of a value of Type.
	Nullable bool `json:"nullable,omitempty"`

	// AdditionalProperties validates object keys not listed in Properties.
	AdditionalProperties *JSON `json:"additionalProperties,omitempty"`

	// Closed rejects object keys that are not listed in Properties.
	Closed bool `json:"-"`
}

// Any accepts every value, null included.
func Any() JSON {
	return JSON{}
}

func String() JSON {
	return JSON{Type: "string"}
}

// NonEmptyString requires a string of at least one byte.
func NonEmptyString() JSON {
	one := 1
	return JSON{Type: "string", MinLength: &one}
}

func Number() JSON {
	return JSON{Type: "number"}
}

func Bool() JSON {
	return JSON{Type: "boolean"}
}

// Array matches a list whose items all match items.
func Array(items JSON) JSON {
	return JSON{Type: "array", Items: &items}
}

// NonEmptyArray creates an array schema that requires at least one item.
func NonEmptyArray(items JSON) JSON {
	one := 1
	s := Array(items)
	s.MinItems = &one
	return s
}

// Object matches a map with the given known keys, of which required must
// be present. Unknown keys are ignored unless Strict or WithAdditional is
// applied.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{Type: "object", Properties: properties, Required: required}
}

// Enum matches exactly one of values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// OneOrMany accepts either a single value of the given schema or a list of them.
func OneOrMany(item JSON) JSON {
	return JSON{AnyOf: []JSON{item, Array(item)}}
}

// MapOf creates an object schema whose values all match the given schema.
func MapOf(values JSON) JSON {
	return JSON{Type: "object", AdditionalProperties: &values}
}

// Ref creates a reference to a named definition.
func Ref(name string) JSON {
	return JSON{Ref: "#/definitions/" + name}
}

// OrNull returns a copy of the schema that also accepts null.
func (s JSON) OrNull() JSON {
	s.Nullable = true
	return s
}

// WithAdditional returns a copy of the object schema that validates unknown
// keys against extra.
func (s JSON) WithAdditional(extra JSON) JSON {
	s.AdditionalProperties = &extra
	return s
}

// Strict returns a copy of the object schema that rejects unknown keys.
func (s JSON) Strict() JSON {
	s.Closed = true
	return s
}

// Validate checks value against the schema. A failure names the offending
// location as a path such as $.nodes.n0.categories[1].
func (s JSON) Validate(value any) error {
	return s.ValidateWithDefinitions(value, nil)
}

// ValidateWithDefinitions is Validate with $ref entries resolved against
// definitions.
func (s JSON) ValidateWithDefinitions(value any, definitions map[string]JSON) error {
	w := &walker{defs: definitions, active: make(map[string]bool)}
	return w.check(s, value, "$")
}

const refPrefix = "#/definitions/"

// walker carries the definitions and the refs currently being expanded
// through one validation.
type walker struct {
	defs   map[string]JSON
	active map[string]bool
}

func mismatch(path, format string, args ...any) error {
	return fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...))
}

func (w *walker) check(s JSON, value any, path string) error {
	if value == nil && (s.Nullable || s.unconstrained()) {
		return nil
	}
	if s.Ref != "" {
		return w.follow(s.Ref, value, path)
	}
	if len(s.AnyOf) > 0 {
		return w.anyOf(s.AnyOf, value, path)
	}
	if len(s.Enum) > 0 {
		if !slices.ContainsFunc(s.Enum, func(e any) bool { return reflect.DeepEqual(e, value) }) {
			return mismatch(path, "%v is not one of %v", value, s.Enum)
		}
		return nil
	}

	switch s.Type {
	case "":
		return nil
	case "string":
		str, ok := value.(string)
		if !ok {
			return mismatch(path, "want string, got %s", kindOf(value))
		}
		return s.checkString(str, path)
	case "number":
		n, ok := toFloat(value)
		if !ok {
			return mismatch(path, "want number, got %s", kindOf(value))
		}
		return s.checkRange(n, path)
	case "boolean":
		if _, ok := value.(bool); !ok {
			return mismatch(path, "want boolean, got %s", kindOf(value))
		}
		return nil
	case "array":
		items, ok := toList(value)
		if !ok {
			return mismatch(path, "want array, got %s", kindOf(value))
		}
		return w.list(s, items, path)
	case "object":
		obj, err := toObject(value)
		if err != nil {
			return mismatch(path, "want object, got %s", kindOf(value))
		}
		return w.object(s, obj, path)
	default:
		return mismatch(path, "unknown schema type %q", s.Type)
	}
}

func (s JSON) unconstrained() bool {
	return s.Type == "" && s.Ref == "" && len(s.AnyOf) == 0 && len(s.Enum) == 0
}

// follow resolves a local $ref. Only #/definitions/<name> is understood and
// a ref that reaches itself without consuming input is reported as circular.
func (w *walker) follow(ref string, value any, path string) error {
	name, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return mismatch(path, "unsupported $ref %s", ref)
	}
	if w.active[name] {
		return mismatch(path, "circular $ref %s", ref)
	}
	def, ok := w.defs[name]
	if !ok {
		return mismatch(path, "unresolved $ref %s", ref)
	}
	w.active[name] = true
	defer delete(w.active, name)
	return w.check(def, value, path)
}

func (w *walker) anyOf(alts []JSON, value any, path string) error {
	reasons := make([]string, 0, len(alts))
	for _, alt := range alts {
		err := w.check(alt, value, path)
		if err == nil {
			return nil
		}
		reasons = append(reasons, err.Error())
	}
	return mismatch(path, "no alternative matched (%s)", strings.Join(reasons, "; "))
}

func (s JSON) checkString(str, path string) error {
	if s.MinLength != nil && len(str) < *s.MinLength {
		return mismatch(path, "length %d below minimum %d", len(str), *s.MinLength)
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return mismatch(path, "length %d above maximum %d", len(str), *s.MaxLength)
	}
	if s.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return mismatch(path, "bad pattern %q: %v", s.Pattern, err)
	}
	if !re.MatchString(str) {
		return mismatch(path, "%q does not match %s", str, s.Pattern)
	}
	return nil
}

func (s JSON) checkRange(n float64, path string) error {
	if s.Minimum != nil && n < *s.Minimum {
		return mismatch(path, "%v below minimum %v", n, *s.Minimum)
	}
	if s.Maximum != nil && n > *s.Maximum {
		return mismatch(path, "%v above maximum %v", n, *s.Maximum)
	}
	return nil
}

func (w *walker) list(s JSON, items []any, path string) error {
	if s.MinItems != nil && len(items) < *s.MinItems {
		return mismatch(path, "%d items, want at least %d", len(items), *s.MinItems)
	}
	if s.Items == nil {
		return nil
	}
	for i, item := range items {
		if err := w.check(*s.Items, item, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

// object checks required keys first, then every present key in sorted order
// so the reported failure is stable.
func (w *walker) object(s JSON, obj map[string]any, path string) error {
	for _, key := range s.Required {
		if _, ok := obj[key]; !ok {
			return mismatch(path, "missing required key %q", key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		prop, known := s.Properties[key]
		switch {
		case known:
		case s.Closed:
			return mismatch(path, "unexpected key %q", key)
		case s.AdditionalProperties != nil:
			prop = *s.AdditionalProperties
		default:
			continue
		}
		if err := w.check(prop, obj[key], path+"."+key); err != nil {
			return err
		}
	}
	return nil
}

func kindOf(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toList accepts decoded JSON lists and typed Go slices.
func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toObject accepts decoded JSON objects and anything that encodes to one.
func toObject(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct, reflect.Pointer:
	default:
		return nil, fmt.Errorf("not an object")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
