package projection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// RawKey names the opaque per-entity payload. It is the one key the
// validator does not descend into.
const RawKey = "_raw"

// Violation is one schema-conformance failure in a projected document.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Rule, v.Message)
}

// Violation rules.
const (
	RuleMissing    = "missing"
	RuleUnknown    = "unknown"
	RuleType       = "type"
	RuleCollection = "collection"
	RuleIdentifier = "identifier"
	RuleDate       = "date"
)

var (
	documentType = reflect.TypeOf(Document{})
	rawType      = reflect.TypeOf(json.RawMessage(nil))
	moneyType    = reflect.TypeOf(model.Money(0))
)

// Validate checks serialized projection output against the schema
// contract: every declared key is present; collections are arrays, never
// null; identifier keys hold strings or null; date keys hold null or an ISO
// date/datetime. An empty result means the document conforms.
func Validate(data []byte) []Violation {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return []Violation{{Path: "$", Rule: RuleType, Message: "not valid JSON: " + err.Error()}}
	}
	w := &walker{}
	w.walk("$", "", documentType, v)
	return w.out
}

type walker struct {
	out []Violation
}

func (w *walker) add(path, rule, format string, args ...any) {
	w.out = append(w.out, Violation{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// walk checks v against type t. key is the JSON key v was found under and
// drives the naming rules.
func (w *walker) walk(path, key string, t reflect.Type, v any) {
	if t == rawType {
		return
	}
	if t.Kind() == reflect.Ptr {
		if v == nil {
			return
		}
		t = t.Elem()
	}
	if v == nil {
		rule := RuleType
		if t.Kind() == reflect.Slice {
			rule = RuleCollection
		}
		w.add(path, rule, "null where %s is required", kindName(t))
		return
	}
	if !w.checkName(path, key, t, v) {
		return
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			w.add(path, RuleType, "expected object, got %s", jsonKind(v))
			return
		}
		w.walkStruct(path, t, obj)
	case reflect.Slice:
		arr, ok := v.([]any)
		if !ok {
			w.add(path, RuleCollection, "expected array, got %s", jsonKind(v))
			return
		}
		for i, el := range arr {
			w.walk(fmt.Sprintf("%s[%d]", path, i), key, t.Elem(), el)
		}
	case reflect.String:
		if _, ok := v.(string); !ok {
			w.add(path, RuleType, "expected string, got %s", jsonKind(v))
		}
	case reflect.Bool:
		if _, ok := v.(bool); !ok {
			w.add(path, RuleType, "expected boolean, got %s", jsonKind(v))
		}
	case reflect.Int64, reflect.Int, reflect.Float64:
		if _, ok := v.(json.Number); !ok {
			w.add(path, RuleType, "expected number, got %s", jsonKind(v))
		}
	}
}

func (w *walker) walkStruct(path string, t reflect.Type, obj map[string]any) {
	declared := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		declared[name] = true
		val, ok := obj[name]
		if !ok {
			w.add(path+"."+name, RuleMissing, "key is absent")
			continue
		}
		w.walk(path+"."+name, name, f.Type, val)
	}
	for k := range obj {
		if !declared[k] {
			w.add(path+"."+k, RuleUnknown, "key is not part of the schema")
		}
	}
}

// checkName applies the key naming contract to a non-null value and
// reports whether the value passed.
func (w *walker) checkName(path, key string, t reflect.Type, v any) bool {
	if t.Kind() == reflect.Slice {
		return true
	}
	switch {
	case isIdentifierKey(key):
		if _, ok := v.(string); !ok {
			w.add(path, RuleIdentifier, "identifier must be a string or null, got %s", jsonKind(v))
			return false
		}
	case isDateKey(key):
		s, ok := v.(string)
		if !ok || !normalize.IsISODate(s) {
			w.add(path, RuleDate, "date must be null or YYYY-MM-DD[THH:MM:SS], got %v", v)
			return false
		}
	}
	return true
}

func isIdentifierKey(key string) bool {
	return key == "id" || strings.HasSuffix(key, "Id") || strings.HasSuffix(key, "Ids")
}

func isDateKey(key string) bool {
	return key == "date" || strings.HasSuffix(key, "Date") || strings.HasSuffix(key, "At") ||
		strings.HasSuffix(key, "Time")
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}

func kindName(t reflect.Type) string {
	switch {
	case t == moneyType:
		return "amount"
	case t.Kind() == reflect.Slice:
		return "array"
	case t.Kind() == reflect.Struct:
		return "object"
	}
	return t.Kind().String()
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
