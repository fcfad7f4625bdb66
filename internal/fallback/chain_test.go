package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainFirstDefiniteWins(t *testing.T) {
	var calls []string
	rule := func(name string, op Opinion[int]) Rule[string, int] {
		return Rule[string, int]{Name: name, Apply: func(string) Opinion[int] {
			calls = append(calls, name)
			return op
		}}
	}

	c := NewChain(
		rule("first", None[int]()),
		rule("second", Some(2)),
		rule("third", Some(3)),
	)

	v, name, ok := c.Resolve("x")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, "second", name)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 3, c.Len())
}

func TestChainNoOpinion(t *testing.T) {
	c := NewChain(Rule[int, string]{Name: "never", Apply: func(int) Opinion[string] { return None[string]() }})
	v, name, ok := c.Resolve(1)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Empty(t, name)
}

func TestSomeZeroValueIsDefinite(t *testing.T) {
	c := NewChain(Rule[int, float64]{Name: "zero", Apply: func(int) Opinion[float64] { return Some(0.0) }})
	v, _, ok := c.Resolve(0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}
