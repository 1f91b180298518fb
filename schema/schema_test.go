package schema

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	schema := String()

	if schema.Type != "string" {
		t.Errorf("expected Type to be 'string', got %q", schema.Type)
	}

	if err := schema.Validate("hello"); err != nil {
		t.Errorf("expected valid string, got error: %v", err)
	}

	if err := schema.Validate(123); err == nil {
		t.Error("expected error for integer, got nil")
	}
	if err := schema.Validate(true); err == nil {
		t.Error("expected error for boolean, got nil")
	}
}

func TestNonEmptyString(t *testing.T) {
	schema := NonEmptyString()

	if err := schema.Validate("x"); err != nil {
		t.Errorf("expected valid string, got error: %v", err)
	}
	if err := schema.Validate(""); err == nil {
		t.Error("expected error for empty string, got nil")
	}
}

func TestNumber(t *testing.T) {
	schema := Number()

	for _, v := range []any{1, int64(2), uint8(3), 4.5, float32(6)} {
		if err := schema.Validate(v); err != nil {
			t.Errorf("expected %T to be a valid number, got error: %v", v, err)
		}
	}
	if err := schema.Validate("1"); err == nil {
		t.Error("expected error for string, got nil")
	}
}

func TestNullable(t *testing.T) {
	if err := String().Validate(nil); err == nil {
		t.Error("expected error for null string, got nil")
	}
	if err := String().OrNull().Validate(nil); err != nil {
		t.Errorf("expected nullable string to accept null, got %v", err)
	}
	if err := Any().Validate(nil); err != nil {
		t.Errorf("expected Any to accept null, got %v", err)
	}
}

func TestArray(t *testing.T) {
	schema := Array(String())

	if err := schema.Validate([]string{"a", "b"}); err != nil {
		t.Errorf("expected valid array, got error: %v", err)
	}
	if err := schema.Validate([]any{}); err != nil {
		t.Errorf("expected empty array to be valid, got error: %v", err)
	}

	err := schema.Validate([]any{"a", 2})
	if err == nil || !strings.Contains(err.Error(), "$[1]") {
		t.Errorf("expected item 1 error, got %v", err)
	}

	if err := NonEmptyArray(String()).Validate([]any{}); err == nil {
		t.Error("expected error for empty array, got nil")
	}
}

func TestOneOrMany(t *testing.T) {
	schema := OneOrMany(NonEmptyString())

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"single", "MONDO:0007254", false},
		{"list", []any{"A", "B"}, false},
		{"empty string", "", true},
		{"number", 3, true},
		{"list with number", []any{"A", 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestObject(t *testing.T) {
	schema := Object(map[string]JSON{
		"name": String(),
		"age":  Number(),
	}, "name")

	if err := schema.Validate(map[string]any{"name": "x", "age": 3, "extra": true}); err != nil {
		t.Errorf("expected valid object, got error: %v", err)
	}

	err := schema.Validate(map[string]any{"age": 3})
	if err == nil || !strings.Contains(err.Error(), `missing required key "name"`) {
		t.Errorf("expected missing field error, got %v", err)
	}

	err = schema.Validate(map[string]any{"name": 1})
	if err == nil || !strings.Contains(err.Error(), "$.name") {
		t.Errorf("expected property error, got %v", err)
	}
}

func TestObject_Strict(t *testing.T) {
	schema := Object(map[string]JSON{"name": String()}).Strict()

	err := schema.Validate(map[string]any{"name": "x", "extra": true})
	if err == nil || !strings.Contains(err.Error(), `unexpected key "extra"`) {
		t.Errorf("expected unknown property error, got %v", err)
	}
}

func TestObject_Additional(t *testing.T) {
	schema := Object(map[string]JSON{"name": String()}).WithAdditional(Number())

	if err := schema.Validate(map[string]any{"name": "x", "score": 0.5}); err != nil {
		t.Errorf("expected valid object, got error: %v", err)
	}
	if err := schema.Validate(map[string]any{"name": "x", "score": "high"}); err == nil {
		t.Error("expected error for non-numeric additional property, got nil")
	}
}

func TestMapOf(t *testing.T) {
	schema := MapOf(String())

	if err := schema.Validate(map[string]any{"a": "x", "b": "y"}); err != nil {
		t.Errorf("expected valid map, got error: %v", err)
	}
	if err := schema.Validate(map[string]any{"a": 1}); err == nil {
		t.Error("expected error for non-string value, got nil")
	}
}

func TestEnum(t *testing.T) {
	schema := Enum(">", "<")

	if err := schema.Validate(">"); err != nil {
		t.Errorf("expected valid enum value, got error: %v", err)
	}
	if err := schema.Validate("~"); err == nil {
		t.Error("expected error for value outside enum, got nil")
	}
}

func TestRef(t *testing.T) {
	defs := map[string]JSON{
		"Name": NonEmptyString(),
	}
	schema := Array(Ref("Name"))

	if err := schema.ValidateWithDefinitions([]any{"a"}, defs); err != nil {
		t.Errorf("expected valid ref, got error: %v", err)
	}
	if err := schema.ValidateWithDefinitions([]any{""}, defs); err == nil {
		t.Error("expected error for empty name, got nil")
	}
	if err := schema.Validate([]any{"a"}); err == nil {
		t.Error("expected error without definitions, got nil")
	}
	if err := Ref("Missing").ValidateWithDefinitions("a", defs); err == nil {
		t.Error("expected error for missing definition, got nil")
	}
}

func TestRef_Circular(t *testing.T) {
	defs := map[string]JSON{
		"Loop": Ref("Loop"),
	}
	err := Ref("Loop").ValidateWithDefinitions("x", defs)
	if err == nil || !strings.Contains(err.Error(), "circular") {
		t.Errorf("expected circular ref error, got %v", err)
	}
}
