package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(Bool{Val: false}))
	assert.False(t, Truthy(Nil{}))
	assert.True(t, Truthy(Bool{Val: true}))
	assert.True(t, Truthy(Int{Val: 0}))
	assert.True(t, Truthy(Str{Val: ""}))
}

func TestEqualCrossNumericType(t *testing.T) {
	assert.True(t, Equal(Int{Val: 3}, Float{Val: 3.0}))
	assert.True(t, Equal(Float{Val: 3.0}, Int{Val: 3}))
	assert.False(t, Equal(Float{Val: 3.5}, Int{Val: 3}))
}

func TestEqualMismatchedTypesFalse(t *testing.T) {
	assert.False(t, Equal(Int{Val: 1}, Str{Val: "1"}))
	assert.False(t, Equal(Bool{Val: true}, Int{Val: 1}))
	assert.False(t, Equal(Nil{}, Int{Val: 0}))
}

func TestEqualArraysDeep(t *testing.T) {
	a := NewArray([]Value{Int{Val: 1}, Str{Val: "x"}})
	b := NewArray([]Value{Int{Val: 1}, Str{Val: "x"}})
	c := NewArray([]Value{Int{Val: 1}, Str{Val: "y"}})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestArrayAliasing(t *testing.T) {
	a := NewArray([]Value{Int{Val: 1}})
	b := a // same backing slice: this is the whole point of the pointer-backed Array
	b.Set(0, Int{Val: 99})
	assert.Equal(t, Int{Val: 99}, a.Get(0))
}

func TestArrayStringFormat(t *testing.T) {
	a := NewArray([]Value{Int{Val: 1}, Int{Val: 2}})
	assert.Equal(t, "[1, 2]", a.String())
}

func TestIteratorOverArray(t *testing.T) {
	a := NewArray([]Value{Int{Val: 1}, Int{Val: 2}, Int{Val: 3}})
	it, ok := NewIterator(a)
	require.True(t, ok)
	var got []int64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v.(Int).Val)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestIteratorOverStr(t *testing.T) {
	it, ok := NewIterator(Str{Val: "ab"})
	require.True(t, ok)
	v1, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, Str{Val: "a"}, v1)
	v2, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, Str{Val: "b"}, v2)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIteratorOverRangePositiveStep(t *testing.T) {
	it, ok := NewIterator(Range{Start: 0, End: 5, Step: 2})
	require.True(t, ok)
	var got []int64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v.(Int).Val)
	}
	assert.Equal(t, []int64{0, 2, 4}, got)
}

func TestIteratorOverRangeNegativeStep(t *testing.T) {
	it, ok := NewIterator(Range{Start: 5, End: 0, Step: -2})
	require.True(t, ok)
	var got []int64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v.(Int).Val)
	}
	assert.Equal(t, []int64{5, 3, 1}, got)
}

func TestIteratorOverRangeZeroStepIsEmpty(t *testing.T) {
	it, ok := NewIterator(Range{Start: 0, End: 10, Step: 0})
	require.True(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIteratorOverRangeEmptyWhenBackwards(t *testing.T) {
	it, ok := NewIterator(Range{Start: 0, End: 5, Step: -1})
	require.True(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIteratorOverIntDigits(t *testing.T) {
	it, ok := NewIterator(Int{Val: -123})
	require.True(t, ok)
	var got []int64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v.(Int).Val)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestNewIteratorRejectsNonIterable(t *testing.T) {
	_, ok := NewIterator(Bool{Val: true})
	assert.False(t, ok)
}

func TestDigitsOfSharedHelper(t *testing.T) {
	assert.Equal(t, "42", DigitsOf(42))
	assert.Equal(t, "42", DigitsOf(-42))
	assert.Equal(t, "0", DigitsOf(0))
}

func TestFnRefString(t *testing.T) {
	fn := FnRef{Name: "add", Params: []string{"a", "b"}}
	assert.Equal(t, "<fn add/2>", fn.String())
}
