package spiderweb

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// formField is one struct field bound to a named input.
type formField struct {
	index int
	name  string
	desc  TypeDescriptor
}

var (
	formLock   sync.Mutex
	formFields = make(map[reflect.Type][]formField)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, ok := parseInputTag(f); ok {
			return name
		}
		return f.Name
	})
	return v
}

// parseInputTag reads `input:"name[,multi][,casesensitive]"` together
// with an optional `separator:"..."` tag.  An empty name means the field
// name.
func parseInputTag(f reflect.StructField) (string, []Hint, bool) {
	tag, ok := f.Tag.Lookup("input")
	if !ok || tag == "-" || f.PkgPath != "" {
		return "", nil, false
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = f.Name
	}
	var hints []Hint
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "multi":
			hints = append(hints, MultiValued())
		case "casesensitive":
			hints = append(hints, CaseSensitive())
		case "":
		default:
			panic(fmt.Sprintf("spiderweb: field %s: unknown input tag option %q", f.Name, opt))
		}
	}
	if sep, ok := f.Tag.Lookup("separator"); ok {
		hints = append(hints, Separator(sep))
	}
	return name, hints, true
}

// fieldsOf returns the input-tagged fields of struct type t, computing
// them once per type.
func fieldsOf(t reflect.Type) []formField {
	formLock.Lock()
	defer formLock.Unlock()
	if fields, found := formFields[t]; found {
		return fields
	}
	var fields []formField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, hints, ok := parseInputTag(f)
		if !ok {
			continue
		}
		fields = append(fields, formField{
			index: i,
			name:  name,
			desc:  DescribeType(f.Type, hints...),
		})
	}
	formFields[t] = fields
	return fields
}

// isForm reports whether t is a struct, or pointer to struct, with at
// least one input-tagged field.
func isForm(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && len(fieldsOf(t)) > 0
}

// Bind fills the input-tagged fields of the struct dst points to and
// then checks its validate tags.
//
//	type signup struct {
//		Email     string   `input:"email" validate:"required,email"`
//		Age       *int     `input:"age"`
//		Subscribe bool     `input:"subscribe"`
//		Tags      []string `input:"tags" separator:","`
//		Avatar    []byte   `input:"avatar"`
//	}
//
// A field whose input is null keeps its current value.  Coercion errors
// are returned as they are; failed validation is a *ValidationError.
func (in *Input) Bind(dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("spiderweb: Bind needs a pointer to a struct, got %T", dst))
	}
	sv := rv.Elem()
	for _, f := range fieldsOf(sv.Type()) {
		v, err := in.ResolveValue(f.name, f.desc)
		if err != nil {
			return err
		}
		if v.IsValid() {
			sv.Field(f.index).Set(v)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// bindNew binds a fresh value of form type t, a struct or pointer to
// struct.
func (in *Input) bindNew(t reflect.Type) (reflect.Value, error) {
	st := t
	if t.Kind() == reflect.Ptr {
		st = t.Elem()
	}
	p := reflect.New(st)
	if err := in.Bind(p.Interface()); err != nil {
		return reflect.Value{}, err
	}
	if t.Kind() == reflect.Ptr {
		return p, nil
	}
	return p.Elem(), nil
}

func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, e := range fieldErrors {
		messages = append(messages, formatFieldError(e))
	}
	return &ValidationError{Messages: messages, Err: err}
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
