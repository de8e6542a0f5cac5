package bridge

import (
	"fmt"
)

// Kind identifies the primitive type of a schema field.
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindPointer
	KindStringUTF8
	KindStringUTF16
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindPointer:
		return "ptr"
	case KindStringUTF8:
		return "str"
	case KindStringUTF16:
		return "wstr"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field describes one field of a foreign structure: a name, a fixed offset, a
// primitive kind, and an optional base-pointer override chain walked with
// Pointer.Offset before the field offset applies.
type Field struct {
	Name   string
	Offset int64
	Kind   Kind

	// Base, when non-empty, is an offset chain from the view's base pointer
	// to the structure actually holding this field.
	Base []int64

	// MaxLen bounds string reads; 0 means a 256-byte default.
	MaxLen Size
}

// Schema is an ordered list of named fields interpreted by a generic accessor.
// It is data, not behavior: consumers declare layouts once and bind them to
// base pointers as needed.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema validates the field list and builds a schema. Duplicate names are
// rejected.
func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema has no fields")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field %d has no name", i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate schema field %q", f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{fields: fields, index: index}, nil
}

// Fields returns the schema's fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Bind attaches the schema to a base pointer.
func (s *Schema) Bind(base Pointer) *View {
	return &View{schema: s, base: base}
}

// View is a schema bound to a base pointer. Reads and writes resolve the
// field's location against the base and move exactly the field's width.
type View struct {
	schema *Schema
	base   Pointer
}

const defaultStringMax = Size(256)

// FieldPointer resolves the address of a named field as a Pointer.
func (v *View) FieldPointer(name string) (Pointer, error) {
	i, ok := v.schema.index[name]
	if !ok {
		return Pointer{}, fmt.Errorf("schema field %q: %w", name, ErrRecordNotFound)
	}
	f := v.schema.fields[i]
	base := v.base
	if len(f.Base) > 0 {
		var err error
		base, err = base.Offset(f.Base...)
		if err != nil {
			return Pointer{}, fmt.Errorf("field %q base chain: %w", name, err)
		}
	}
	return base.Add(f.Offset), nil
}

// Read loads the named field. The returned value's dynamic type follows the
// field kind; pointer fields come back as Pointer.
func (v *View) Read(name string) (any, error) {
	i, ok := v.schema.index[name]
	if !ok {
		return nil, fmt.Errorf("schema field %q: %w", name, ErrRecordNotFound)
	}
	f := v.schema.fields[i]
	ptr, err := v.FieldPointer(name)
	if err != nil {
		return nil, err
	}

	max := f.MaxLen
	if max == 0 {
		max = defaultStringMax
	}

	switch f.Kind {
	case KindU8:
		return ptr.ReadU8()
	case KindU16:
		return ptr.ReadU16()
	case KindU32:
		return ptr.ReadU32()
	case KindU64:
		return ptr.ReadU64()
	case KindI8:
		return ptr.ReadI8()
	case KindI16:
		return ptr.ReadI16()
	case KindI32:
		return ptr.ReadI32()
	case KindI64:
		return ptr.ReadI64()
	case KindF32:
		return ptr.ReadF32()
	case KindF64:
		return ptr.ReadF64()
	case KindPointer:
		return ptr.ReadPointer()
	case KindStringUTF8:
		return ptr.ReadStringUTF8(max)
	case KindStringUTF16:
		return ptr.ReadStringUTF16(max)
	default:
		return nil, fmt.Errorf("field %q has unknown kind %v: %w", name, f.Kind, ErrBadArgument)
	}
}

// Write stores the named field. The value's type must match the field kind.
// Pointer and string fields are read-only.
func (v *View) Write(name string, value any) error {
	i, ok := v.schema.index[name]
	if !ok {
		return fmt.Errorf("schema field %q: %w", name, ErrRecordNotFound)
	}
	f := v.schema.fields[i]
	switch f.Kind {
	case KindPointer, KindStringUTF8, KindStringUTF16:
		return fmt.Errorf("field %q (%v): %w", name, f.Kind, ErrPointerFieldReadOnly)
	}
	ptr, err := v.FieldPointer(name)
	if err != nil {
		return err
	}

	switch f.Kind {
	case KindU8:
		if x, ok := value.(uint8); ok {
			return ptr.WriteU8(x)
		}
	case KindU16:
		if x, ok := value.(uint16); ok {
			return ptr.WriteU16(x)
		}
	case KindU32:
		if x, ok := value.(uint32); ok {
			return ptr.WriteU32(x)
		}
	case KindU64:
		if x, ok := value.(uint64); ok {
			return ptr.WriteU64(x)
		}
	case KindI8:
		if x, ok := value.(int8); ok {
			return ptr.WriteI8(x)
		}
	case KindI16:
		if x, ok := value.(int16); ok {
			return ptr.WriteI16(x)
		}
	case KindI32:
		if x, ok := value.(int32); ok {
			return ptr.WriteI32(x)
		}
	case KindI64:
		if x, ok := value.(int64); ok {
			return ptr.WriteI64(x)
		}
	case KindF32:
		if x, ok := value.(float32); ok {
			return ptr.WriteF32(x)
		}
	case KindF64:
		if x, ok := value.(float64); ok {
			return ptr.WriteF64(x)
		}
	}
	return fmt.Errorf("field %q (%v) does not accept %T: %w", name, f.Kind, value, ErrBadArgument)
}
