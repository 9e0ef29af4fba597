package etag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIsPure(t *testing.T) {
	a := Compute(1000, []byte(`{"n":"a","v":1}`))
	b := Compute(1000, []byte(`{"n":"a","v":1}`))
	assert.Equal(t, a, b)
}

func TestComputeChangesWithLastModified(t *testing.T) {
	data := []byte(`{"n":"a","v":1}`)
	a := Compute(1000, data)
	b := Compute(1001, data)
	assert.NotEqual(t, a, b)
}

func TestComputeChangesWithData(t *testing.T) {
	a := Compute(1000, []byte(`{"n":"a","v":1}`))
	b := Compute(1000, []byte(`{"n":"b","v":2}`))
	assert.NotEqual(t, a, b)
}

func TestCanonicalizeNormalizesKeyOrder(t *testing.T) {
	a := Canonicalize([]byte(`{"v":1,"n":"a"}`))
	b := Canonicalize([]byte(`{"n":"a","v":1}`))
	assert.Equal(t, a, b)
}

func TestCanonicalizePassesThroughNonJSON(t *testing.T) {
	raw := []byte("not json")
	assert.Equal(t, raw, Canonicalize(raw))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
}
