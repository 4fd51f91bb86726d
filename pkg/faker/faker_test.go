package faker

import (
	"net"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededDeterminism(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.FullName(), b.FullName())
		assert.Equal(t, a.Int(0, 1000), b.Int(0, 1000))
	}
}

func TestIntBounds(t *testing.T) {
	f := New()
	for i := 0; i < 100; i++ {
		v := f.Int(5, 10)
		assert.GreaterOrEqual(t, v, 5)
		assert.LessOrEqual(t, v, 10)
	}
	assert.Equal(t, 7, f.Int(7, 7))
	assert.Equal(t, 7, f.Int(7, 3))
}

func TestFloatBounds(t *testing.T) {
	f := New()
	for i := 0; i < 100; i++ {
		v := f.Float(1.5, 2.5)
		assert.GreaterOrEqual(t, v, 1.5)
		assert.Less(t, v, 2.5)
	}
}

func TestEmailShape(t *testing.T) {
	f := New()
	email := f.Email()
	parts := strings.Split(email, "@")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], ".")
	assert.Equal(t, strings.ToLower(email), email)
}

func TestUUID(t *testing.T) {
	f := New()
	_, err := uuid.Parse(f.UUID())
	assert.NoError(t, err)
	assert.NotEqual(t, f.UUID(), f.UUID())
}

func TestIPv4(t *testing.T) {
	f := New()
	for i := 0; i < 20; i++ {
		assert.NotNil(t, net.ParseIP(f.IPv4()))
	}
}

func TestPriceHasTwoDecimals(t *testing.T) {
	f := New()
	for i := 0; i < 50; i++ {
		p := f.Price()
		assert.GreaterOrEqual(t, p, 1.0)
		cents := p * 100
		assert.InDelta(t, cents, float64(int(cents+0.5)), 1e-6)
	}
}

func TestSentence(t *testing.T) {
	f := New()
	s := f.Sentence()
	assert.True(t, strings.HasSuffix(s, "."))
	assert.Equal(t, strings.ToUpper(s[:1]), s[:1])
	assert.GreaterOrEqual(t, len(strings.Fields(s)), 5)
}
