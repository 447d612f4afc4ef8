package sqlval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Run("empty is null", func(t *testing.T) {
		assert.Equal(t, Null, Classify(""))
		assert.Equal(t, Null, Classify("   "))
	})

	t.Run("NULL literal is case insensitive", func(t *testing.T) {
		assert.Equal(t, Null, Classify("NULL"))
		assert.Equal(t, Null, Classify("null"))
		assert.Equal(t, Null, Classify("NuLL"))
	})

	t.Run("single-quoted string with doubled escape", func(t *testing.T) {
		v := Classify(`'it''s fine'`)
		assert.Equal(t, KindString, v.Kind)
		assert.Equal(t, "it's fine", v.Str)
	})

	t.Run("single-quoted string with backslash escape", func(t *testing.T) {
		v := Classify(`'it\'s fine'`)
		assert.Equal(t, KindString, v.Kind)
		assert.Equal(t, "it's fine", v.Str)
	})

	t.Run("double-quoted string", func(t *testing.T) {
		v := Classify(`"hello ""world"""`)
		assert.Equal(t, KindString, v.Kind)
		assert.Equal(t, `hello "world"`, v.Str)
	})

	t.Run("backslash not otherwise interpreted", func(t *testing.T) {
		v := Classify(`'line\nbreak'`)
		assert.Equal(t, `line\nbreak`, v.Str)
	})

	t.Run("signed integer", func(t *testing.T) {
		v := Classify("-4200")
		assert.Equal(t, KindInt, v.Kind)
		assert.Equal(t, int64(-4200), v.Int)
	})

	t.Run("float with exponent", func(t *testing.T) {
		v := Classify("1.5e10")
		assert.Equal(t, KindFloat, v.Kind)
		assert.InDelta(t, 1.5e10, v.Flt, 1)
	})

	t.Run("identity string fallback", func(t *testing.T) {
		v := Classify("CURRENT_TIMESTAMP")
		assert.Equal(t, KindString, v.Kind)
		assert.Equal(t, "CURRENT_TIMESTAMP", v.Str)
	})

	t.Run("AsString renders every kind", func(t *testing.T) {
		assert.Equal(t, "", Null.AsString())
		assert.Equal(t, "42", Value{Kind: KindInt, Int: 42}.AsString())
		assert.Equal(t, "1.5", Value{Kind: KindFloat, Flt: 1.5}.AsString())
		assert.Equal(t, "abc", Value{Kind: KindString, Str: "abc"}.AsString())
	})
}
