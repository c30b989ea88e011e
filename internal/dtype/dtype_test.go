package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]DType{
		"f32":     F32,
		"F64":     F64,
		"float32": F32,
		"int32":   I32,
		" i64 ":   I64,
		"half":    F16,
		"u8":      U8,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := Parse("complex128")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dtype")
}

func TestSizeAndString(t *testing.T) {
	t.Parallel()

	for _, dt := range All() {
		assert.True(t, dt.Valid(), dt.String())
		assert.Positive(t, dt.Size(), dt.String())
		parsed, err := Parse(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}
	assert.Equal(t, 0, Invalid.Size())
	assert.False(t, Invalid.Valid())
	assert.Equal(t, 2, F16.Size())
	assert.Equal(t, 8, U64.Size())
}

func TestFloatCodecs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	buf := make([]byte, 8)

	// --- Act / Assert ---
	F64.PutFloat64(buf, 122.33)
	assert.Equal(t, 122.33, F64.Float64(buf))

	F32.PutFloat64(buf, 122.33)
	assert.Equal(t, float64(float32(122.33)), F32.Float64(buf))

	F16.PutFloat64(buf, 1.5)
	assert.Equal(t, 1.5, F16.Float64(buf))

	F16.PutFloat64(buf, 122.33)
	assert.InDelta(t, 122.33, F16.Float64(buf), 0.1)
}

func TestIntCodecs(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 8)

	I8.PutInt64(buf, -3)
	assert.Equal(t, int64(-3), I8.Int64(buf))

	I16.PutInt64(buf, -300)
	assert.Equal(t, int64(-300), I16.Int64(buf))

	I32.PutFloat64(buf, 7.9)
	assert.Equal(t, int64(7), I32.Int64(buf))
	assert.Equal(t, 7.0, I32.Float64(buf))

	U32.PutInt64(buf, 4000000000)
	assert.Equal(t, int64(4000000000), U32.Int64(buf))

	F32.PutInt64(buf, 12)
	assert.Equal(t, int64(12), F32.Int64(buf))
}
