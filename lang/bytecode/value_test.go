package bytecode_test

import (
	"testing"

	"github.com/mna/lit/lang/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueNumberRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.25, -0.5, 1e300, -1e-300}
	for _, f := range cases {
		v := bytecode.Number(f)
		require.True(t, v.IsNumber(), "Number(%v)", f)
		assert.False(t, v.IsNil())
		assert.False(t, v.IsBool())
		assert.False(t, v.IsChar())
		assert.False(t, v.IsObject())
		assert.Equal(t, f, v.AsNumber())
	}
}

func TestValueNumberNaN(t *testing.T) {
	nan := bytecode.Number(0.0 / negZeroDivisor())
	require.True(t, nan.IsNumber())
	assert.NotEqual(t, nan.AsNumber(), nan.AsNumber()) // NaN != NaN
}

func negZeroDivisor() float64 { return 0 }

func TestValueCharRoundTrip(t *testing.T) {
	for _, c := range []byte{'a', 'Z', '0', ' ', 0, 255} {
		v := bytecode.Char(c)
		require.True(t, v.IsChar())
		assert.False(t, v.IsNumber())
		assert.Equal(t, c, v.AsChar())
	}
}

func TestValueBool(t *testing.T) {
	assert.True(t, bytecode.True.IsBool())
	assert.True(t, bytecode.True.AsBool())
	assert.True(t, bytecode.False.IsBool())
	assert.False(t, bytecode.False.AsBool())
	assert.Equal(t, bytecode.True, bytecode.Bool(true))
	assert.Equal(t, bytecode.False, bytecode.Bool(false))
}

func TestValueNil(t *testing.T) {
	assert.True(t, bytecode.Nil.IsNil())
	assert.False(t, bytecode.True.IsNil())
}

func TestValueFalsey(t *testing.T) {
	cases := []struct {
		v    bytecode.Value
		want bool
	}{
		{bytecode.Nil, true},
		{bytecode.False, true},
		{bytecode.True, false},
		{bytecode.Number(0), true},
		{bytecode.Number(-0), true},
		{bytecode.Number(1), false},
		{bytecode.Number(-1), false},
		{bytecode.Char('a'), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.v.IsFalsey(), "%v", c.v)
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, bytecode.Equal(bytecode.Number(1), bytecode.Number(1)))
	assert.True(t, bytecode.Equal(bytecode.Number(0), bytecode.Number(-0)))
	assert.False(t, bytecode.Equal(bytecode.Number(1), bytecode.Number(2)))
	assert.True(t, bytecode.Equal(bytecode.True, bytecode.True))
	assert.False(t, bytecode.Equal(bytecode.True, bytecode.False))
	assert.True(t, bytecode.Equal(bytecode.Nil, bytecode.Nil))
	assert.False(t, bytecode.Equal(bytecode.Nil, bytecode.False))
}

type fakeObj struct {
	dark    bool
	hasSlot bool
	slot    uint32
	next    bytecode.Obj
}

func (f *fakeObj) Dark() bool             { return f.dark }
func (f *fakeObj) SetDark(d bool)         { f.dark = d }
func (f *fakeObj) Next() bytecode.Obj     { return f.next }
func (f *fakeObj) SetNext(o bytecode.Obj) { f.next = o }
func (f *fakeObj) Kind() bytecode.ObjKind { return bytecode.ObjString }
func (f *fakeObj) Slot() (uint32, bool)   { return f.slot, f.hasSlot }
func (f *fakeObj) SetSlot(s uint32)       { f.slot, f.hasSlot = s, true }

func TestValueObjectRoundTrip(t *testing.T) {
	o1, o2 := &fakeObj{}, &fakeObj{}
	v1, v2 := bytecode.Object(o1), bytecode.Object(o2)

	require.True(t, v1.IsObject())
	require.True(t, v2.IsObject())
	assert.False(t, v1.IsNumber())
	assert.Same(t, o1, v1.AsObject())
	assert.Same(t, o2, v2.AsObject())
	assert.NotEqual(t, v1, v2)
}

// Boxing the same object twice must produce the identical tagged word:
// string interning relies on pointer identity surviving the Value encoding.
func TestValueObjectBoxingIsStable(t *testing.T) {
	o := &fakeObj{}
	v1, v2 := bytecode.Object(o), bytecode.Object(o)
	assert.Equal(t, v1, v2)
	assert.True(t, bytecode.Equal(v1, v2))
}

func TestObjKindString(t *testing.T) {
	assert.Equal(t, "string", bytecode.ObjString.String())
	assert.Equal(t, "class", bytecode.ObjClass.String())
	assert.Equal(t, "unknown", bytecode.ObjKind(255).String())
}
