package bridge

import (
	"errors"
	"testing"
)

func monsterSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		Field{Name: "health", Offset: 0x10, Kind: KindF32},
		Field{Name: "max_health", Offset: 0x14, Kind: KindF32},
		Field{Name: "id", Offset: 0x20, Kind: KindI32},
		Field{Name: "parts", Offset: 0x28, Kind: KindPointer},
		Field{Name: "name", Offset: 0x30, Kind: KindStringUTF8, MaxLen: 32},
		// field living behind an indirection from the base object
		Field{Name: "stamina", Base: []int64{0x40, 0}, Offset: 0x8, Kind: KindF32},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestSchemaReadWrite(t *testing.T) {
	im := newImage(0x1000, 0x1000)
	base := NewPointer(im.r, 0x1100)
	view := monsterSchema(t).Bind(base)

	if err := view.Write("health", float32(88.5)); err != nil {
		t.Fatalf("Write health: %v", err)
	}
	v, err := view.Read("health")
	if err != nil {
		t.Fatalf("Read health: %v", err)
	}
	if v.(float32) != 88.5 {
		t.Errorf("health = %v, want 88.5", v)
	}

	if err := view.Write("id", int32(77)); err != nil {
		t.Fatalf("Write id: %v", err)
	}
	if v, _ := view.Read("id"); v.(int32) != 77 {
		t.Errorf("id = %v, want 77", v)
	}
}

func TestSchemaPointerFieldReadOnly(t *testing.T) {
	im := newImage(0x1000, 0x1000)
	view := monsterSchema(t).Bind(NewPointer(im.r, 0x1100))

	err := view.Write("parts", uint64(0x1234))
	if !errors.Is(err, ErrPointerFieldReadOnly) {
		t.Errorf("write to pointer field: %v, want ErrPointerFieldReadOnly", err)
	}
	err = view.Write("name", "x")
	if !errors.Is(err, ErrPointerFieldReadOnly) {
		t.Errorf("write to string field: %v, want ErrPointerFieldReadOnly", err)
	}
}

func TestSchemaBaseChain(t *testing.T) {
	im := newImage(0x1000, 0x1000)
	const base = Address(0x1100)
	const sub = Address(0x1800)
	// base+0x40 holds a pointer to the sub-structure
	im.putU64(base+0x40, uint64(sub))

	view := monsterSchema(t).Bind(NewPointer(im.r, base))
	if err := view.Write("stamina", float32(150)); err != nil {
		t.Fatalf("Write stamina: %v", err)
	}

	// The chain {0x40, 0} derefs base+0x40 then adds 0; field offset 0x8.
	direct, err := NewPointer(im.r, sub+0x8).ReadF32()
	if err != nil {
		t.Fatal(err)
	}
	if direct != 150 {
		t.Errorf("stamina landed wrong, sub+0x8 = %v", direct)
	}
}

func TestSchemaTypeMismatch(t *testing.T) {
	im := newImage(0x1000, 0x100)
	view := monsterSchema(t).Bind(NewPointer(im.r, 0x1000))
	err := view.Write("health", int32(3)) // f32 field, int32 value
	if !errors.Is(err, ErrBadArgument) {
		t.Errorf("type mismatch: %v, want ErrBadArgument", err)
	}
}

func TestSchemaUnknownField(t *testing.T) {
	im := newImage(0x1000, 0x100)
	view := monsterSchema(t).Bind(NewPointer(im.r, 0x1000))
	if _, err := view.Read("rage"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("unknown field: %v, want ErrRecordNotFound", err)
	}
}

func TestSchemaDuplicateField(t *testing.T) {
	_, err := NewSchema(
		Field{Name: "a", Kind: KindU8},
		Field{Name: "a", Kind: KindU16},
	)
	if err == nil {
		t.Error("duplicate field names accepted")
	}
}

func TestSchemaReadString(t *testing.T) {
	im := newImage(0x1000, 0x1000)
	const base = Address(0x1100)
	const strBuf = Address(0x1900)
	im.putU64(base+0x30, uint64(strBuf))
	im.putBytes(strBuf, append([]byte("Rathalos"), 0))

	view := monsterSchema(t).Bind(NewPointer(im.r, base))
	v, err := view.Read("name")
	if err != nil {
		t.Fatalf("Read name: %v", err)
	}
	if v.(string) != "Rathalos" {
		t.Errorf("name = %q", v)
	}
}
