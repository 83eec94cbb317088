package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind classifies how a field is parsed, compared and rendered.
type FieldKind string

// Supported field kinds.
const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindMoney  FieldKind = "money"
	KindEnum   FieldKind = "enum"
	KindDate   FieldKind = "date"
	// KindRef holds the id of a record in another collection.
	KindRef FieldKind = "ref"
	// KindRefs holds a list of ids of records in another collection.
	KindRefs FieldKind = "refs"
)

// Numeric reports whether values of the kind compare numerically.
func (k FieldKind) Numeric() bool { return k == KindNumber || k == KindMoney }

// DateLayout is the ISO date format stored in date fields.
const DateLayout = "2006-01-02"

// Field describes one typed field of a record.
type Field[R Record] struct {
	Name     string
	Kind     FieldKind
	Required bool
	Options  []string
	Target   EntityType

	text    func(R) string
	number  func(R) float64
	refs    func(R) []string
	setRefs func(R, []string)
	parse   func(R, string) error
}

// Require marks the field as mandatory.
func (f Field[R]) Require() Field[R] {
	f.Required = true
	return f
}

// Text renders the field value as text.
func (f Field[R]) Text(rec R) string {
	switch {
	case f.text != nil:
		return f.text(rec)
	case f.refs != nil:
		return strings.Join(f.refs(rec), ",")
	case f.number != nil:
		return strconv.FormatFloat(f.number(rec), 'f', -1, 64)
	}
	return ""
}

// Number returns the numeric value for numeric kinds.
func (f Field[R]) Number(rec R) (float64, bool) {
	if f.number == nil {
		return 0, false
	}
	return f.number(rec), true
}

// Refs returns referenced ids for ref and refs kinds.
func (f Field[R]) Refs(rec R) []string {
	switch f.Kind {
	case KindRefs:
		return f.refs(rec)
	case KindRef:
		if id := f.text(rec); id != "" {
			return []string{id}
		}
	}
	return nil
}

// Set parses raw input into the record.
func (f Field[R]) Set(rec R, raw string) error {
	if f.parse == nil {
		return fmt.Errorf("field is read-only")
	}
	return f.parse(rec, raw)
}

func (f Field[R]) check(rec R) string {
	switch f.Kind {
	case KindRefs:
		if f.Required && len(f.refs(rec)) == 0 {
			return "is required"
		}
		return ""
	case KindNumber:
		if v := f.number(rec); math.IsNaN(v) || math.IsInf(v, 0) {
			return "must be a finite number"
		}
		return ""
	case KindMoney:
		return ""
	}
	v := f.text(rec)
	if v == "" {
		if f.Required {
			return "is required"
		}
		return ""
	}
	switch f.Kind {
	case KindEnum:
		if !slices.Contains(f.Options, v) {
			return fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", "))
		}
	case KindDate:
		if _, err := time.Parse(DateLayout, v); err != nil {
			return "must be a date formatted YYYY-MM-DD"
		}
	}
	return ""
}

// TextField declares a free-text field.
func TextField[R Record](name string, get func(R) string, set func(R, string)) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindText,
		text: get,
		parse: func(rec R, raw string) error {
			set(rec, strings.TrimSpace(raw))
			return nil
		},
	}
}

// EnumField declares a field restricted to options.
func EnumField[R Record](name string, options []string, get func(R) string, set func(R, string)) Field[R] {
	return Field[R]{
		Name:    name,
		Kind:    KindEnum,
		Options: options,
		text:    get,
		parse: func(rec R, raw string) error {
			v := strings.TrimSpace(raw)
			if v != "" && !slices.Contains(options, v) {
				return fmt.Errorf("must be one of %s", strings.Join(options, ", "))
			}
			set(rec, v)
			return nil
		},
	}
}

// DateField declares an ISO date field stored as text.
func DateField[R Record](name string, get func(R) string, set func(R, string)) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindDate,
		text: get,
		parse: func(rec R, raw string) error {
			v := strings.TrimSpace(raw)
			if v != "" {
				if _, err := time.Parse(DateLayout, v); err != nil {
					return fmt.Errorf("must be a date formatted YYYY-MM-DD")
				}
			}
			set(rec, v)
			return nil
		},
	}
}

// NumberField declares a floating point field. Empty input stores zero.
func NumberField[R Record](name string, get func(R) float64, set func(R, float64)) Field[R] {
	return Field[R]{
		Name:   name,
		Kind:   KindNumber,
		number: get,
		parse: func(rec R, raw string) error {
			v, err := parseNumber(raw)
			if err != nil {
				return err
			}
			set(rec, v)
			return nil
		},
	}
}

// IntField declares a whole-number field.
func IntField[R Record](name string, get func(R) int, set func(R, int)) Field[R] {
	return Field[R]{
		Name:   name,
		Kind:   KindNumber,
		number: func(rec R) float64 { return float64(get(rec)) },
		parse: func(rec R, raw string) error {
			v, err := parseNumber(raw)
			if err != nil {
				return err
			}
			if v != math.Trunc(v) {
				return fmt.Errorf("must be a whole number")
			}
			// -math.MinInt is 2^63 (or 2^31), exact as a float64 unlike math.MaxInt.
			if v < math.MinInt || v >= -math.MinInt {
				return fmt.Errorf("must be a number")
			}
			set(rec, int(v))
			return nil
		},
	}
}

// MoneyField declares a decimal amount.
func MoneyField[R Record](name string, get func(R) decimal.Decimal, set func(R, decimal.Decimal)) Field[R] {
	return Field[R]{
		Name:   name,
		Kind:   KindMoney,
		number: func(rec R) float64 { return get(rec).InexactFloat64() },
		text:   func(rec R) string { return get(rec).String() },
		parse: func(rec R, raw string) error {
			v := strings.TrimSpace(raw)
			if v == "" {
				set(rec, decimal.Zero)
				return nil
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("must be a decimal amount")
			}
			set(rec, d)
			return nil
		},
	}
}

// RefField declares a reference to a record of target.
func RefField[R Record](name string, target EntityType, get func(R) string, set func(R, string)) Field[R] {
	return Field[R]{
		Name:   name,
		Kind:   KindRef,
		Target: target,
		text:   get,
		parse: func(rec R, raw string) error {
			set(rec, strings.TrimSpace(raw))
			return nil
		},
	}
}

// RefsField declares a list of references to records of target.
func RefsField[R Record](name string, target EntityType, get func(R) []string, set func(R, []string)) Field[R] {
	return Field[R]{
		Name:    name,
		Kind:    KindRefs,
		Target:  target,
		refs:    get,
		setRefs: set,
		parse: func(rec R, raw string) error {
			var ids []string
			for _, part := range strings.Split(raw, ",") {
				if id := strings.TrimSpace(part); id != "" {
					ids = append(ids, id)
				}
			}
			set(rec, ids)
			return nil
		},
	}
}

func parseNumber(raw string) (float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a number")
	}
	return f, nil
}

// Schema is the explicit field list of one entity type.
type Schema[R Record] struct {
	entity EntityType
	key    string
	newFn  func() R
	fields []Field[R]
	index  map[string]int
	search []string

	// zeroMax keeps the legacy input convention where a maximum of 0 means
	// "no upper bound" for range filters on this collection.
	zeroMax bool
}

// NewSchema builds a schema. It panics on duplicate field names.
func NewSchema[R Record](entity EntityType, key string, newFn func() R, fields ...Field[R]) *Schema[R] {
	s := &Schema[R]{entity: entity, key: key, newFn: newFn, fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %q", entity, f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

// WithSearch sets the fields matched by free-text search.
func (s *Schema[R]) WithSearch(names ...string) *Schema[R] {
	for _, name := range names {
		if _, ok := s.index[name]; !ok {
			panic(fmt.Sprintf("schema %s: unknown search field %q", s.entity, name))
		}
	}
	s.search = names
	return s
}

// WithZeroMaxUnbounded enables the legacy zero-max range convention.
func (s *Schema[R]) WithZeroMaxUnbounded() *Schema[R] {
	s.zeroMax = true
	return s
}

// ZeroMaxUnbounded reports whether a maximum of 0 means "no upper bound".
func (s *Schema[R]) ZeroMaxUnbounded() bool { return s.zeroMax }

// Entity returns the entity type.
func (s *Schema[R]) Entity() EntityType { return s.entity }

// Key returns the persistence key of the collection.
func (s *Schema[R]) Key() string { return s.key }

// New allocates an empty record.
func (s *Schema[R]) New() R { return s.newFn() }

// NewRecord allocates an empty record as a Record.
func (s *Schema[R]) NewRecord() Record { return s.newFn() }

// Fields returns the declared fields in order.
func (s *Schema[R]) Fields() []Field[R] { return slices.Clone(s.fields) }

// SearchFields returns the names used by free-text search.
func (s *Schema[R]) SearchFields() []string { return slices.Clone(s.search) }

// FieldNames returns field names in declaration order.
func (s *Schema[R]) FieldNames() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field by name.
func (s *Schema[R]) Field(name string) (Field[R], bool) {
	i, ok := s.index[name]
	if !ok {
		return Field[R]{}, false
	}
	return s.fields[i], true
}

// FieldKind reports the kind of the named field.
func (s *Schema[R]) FieldKind(name string) (FieldKind, bool) {
	f, ok := s.Field(name)
	return f.Kind, ok
}

// Validate checks required fields, enum membership, dates and numbers.
func (s *Schema[R]) Validate(rec R) error {
	var errs []FieldError
	for _, f := range s.fields {
		if msg := f.check(rec); msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Entity: s.entity, Errors: errs}
	}
	return nil
}

// Set parses raw into the named field.
func (s *Schema[R]) Set(rec R, name, raw string) error {
	f, ok := s.Field(name)
	if !ok {
		return NewValidationError(s.entity, name, "unknown field")
	}
	if err := f.Set(rec, raw); err != nil {
		return NewValidationError(s.entity, name, err.Error())
	}
	return nil
}

// Typed converts erased records, skipping records of other types.
func Typed[R Record](records []Record) []R {
	out := make([]R, 0, len(records))
	for _, rec := range records {
		if typed, ok := rec.(R); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Erase converts typed records into Records.
func Erase[R Record](records []R) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out
}

// Reference resolves a ref or refs field into erased accessors.
type Reference struct {
	Holder EntityType
	Field  string
	Kind   FieldKind
	Target EntityType
	// IDs returns the ids referenced by rec.
	IDs func(rec Record) []string
	// Drop clears the reference to id; it reports whether rec changed.
	Drop func(rec Record, id string) bool
}

// Descriptor is the type-erased view of a Schema used by stores, adapters and exporters.
type Descriptor interface {
	Entity() EntityType
	Key() string
	NewRecord() Record
	FieldNames() []string
	FieldKind(name string) (FieldKind, bool)
	SearchFields() []string
	ZeroMaxUnbounded() bool
	Text(rec Record, name string) string
	Number(rec Record, name string) (float64, bool)
	ValidateRecord(rec Record) error
	SetField(rec Record, name, raw string) error
	Row(rec Record) []string
	References() []Reference
	Encode(records []Record) ([]byte, error)
	Decode(payload []byte) ([]Record, error)
}

var _ Descriptor = (*Schema[*Property])(nil)

func (s *Schema[R]) cast(rec Record) (R, error) {
	typed, ok := rec.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("%w: expected %s record, got %T", ErrValidation, s.entity, rec)
	}
	return typed, nil
}

// ValidateRecord validates an erased record.
func (s *Schema[R]) ValidateRecord(rec Record) error {
	typed, err := s.cast(rec)
	if err != nil {
		return err
	}
	return s.Validate(typed)
}

// SetField parses raw into the named field of an erased record.
func (s *Schema[R]) SetField(rec Record, name, raw string) error {
	typed, err := s.cast(rec)
	if err != nil {
		return err
	}
	return s.Set(typed, name, raw)
}

// Text renders the named field of an erased record.
func (s *Schema[R]) Text(rec Record, name string) string {
	f, ok := s.Field(name)
	if !ok {
		return ""
	}
	typed, err := s.cast(rec)
	if err != nil {
		return ""
	}
	return f.Text(typed)
}

// Number returns the numeric value of the named field of an erased record.
func (s *Schema[R]) Number(rec Record, name string) (float64, bool) {
	f, ok := s.Field(name)
	if !ok {
		return 0, false
	}
	typed, err := s.cast(rec)
	if err != nil {
		return 0, false
	}
	return f.Number(typed)
}

// Row renders every field as text in declaration order.
func (s *Schema[R]) Row(rec Record) []string {
	typed, err := s.cast(rec)
	if err != nil {
		return nil
	}
	row := make([]string, len(s.fields))
	for i, f := range s.fields {
		row[i] = f.Text(typed)
	}
	return row
}

// References lists every ref and refs field of the schema.
func (s *Schema[R]) References() []Reference {
	var out []Reference
	for _, f := range s.fields {
		if f.Kind != KindRef && f.Kind != KindRefs {
			continue
		}
		field := f
		ref := Reference{Holder: s.entity, Field: field.Name, Kind: field.Kind, Target: field.Target}
		ref.IDs = func(rec Record) []string {
			typed, ok := rec.(R)
			if !ok {
				return nil
			}
			return field.Refs(typed)
		}
		ref.Drop = func(rec Record, id string) bool {
			typed, ok := rec.(R)
			if !ok {
				return false
			}
			if field.Kind == KindRef {
				if field.text(typed) != id {
					return false
				}
				_ = field.parse(typed, "")
				return true
			}
			current := field.refs(typed)
			kept := slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == id })
			if len(kept) == len(current) {
				return false
			}
			field.setRefs(typed, kept)
			return true
		}
		out = append(out, ref)
	}
	return out
}

// Encode serializes records as a JSON array.
func (s *Schema[R]) Encode(records []Record) ([]byte, error) {
	typed := make([]R, 0, len(records))
	for _, rec := range records {
		t, err := s.cast(rec)
		if err != nil {
			return nil, err
		}
		typed = append(typed, t)
	}
	return json.Marshal(typed)
}

// Decode parses a JSON array, rejecting null entries, blank ids and duplicate ids.
func (s *Schema[R]) Decode(payload []byte) ([]Record, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	seen := make(map[string]struct{}, len(raws))
	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("decode %s: entry %d is null", s.key, i)
		}
		rec := s.newFn()
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("decode %s: entry %d: %w", s.key, i, err)
		}
		id := rec.Meta().ID
		if id == "" {
			return nil, fmt.Errorf("decode %s: entry %d has no id", s.key, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("decode %s: duplicate id %q", s.key, id)
		}
		seen[id] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}
