// Package fallback provides ordered heuristic chains where the first rule
// with a definite answer wins.
package fallback

// Opinion is a rule's answer. Definite is false when the rule has no opinion.
type Opinion[T any] struct {
	Value    T
	Definite bool
}

// Some returns a definite opinion
func Some[T any](v T) Opinion[T] {
	return Opinion[T]{Value: v, Definite: true}
}

// None returns an empty opinion
func None[T any]() Opinion[T] {
	return Opinion[T]{}
}

// Rule is a pure function from input to an opinion
type Rule[In, Out any] struct {
	Name  string
	Apply func(In) Opinion[Out]
}

// Chain evaluates rules in order
type Chain[In, Out any] struct {
	rules []Rule[In, Out]
}

// NewChain builds a chain from rules in priority order
func NewChain[In, Out any](rules ...Rule[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{rules: rules}
}

// Resolve returns the first definite opinion along with the name of the rule
// that produced it. ok is false when no rule had an opinion.
func (c *Chain[In, Out]) Resolve(in In) (out Out, rule string, ok bool) {
	for _, r := range c.rules {
		if op := r.Apply(in); op.Definite {
			return op.Value, r.Name, true
		}
	}
	return out, "", false
}

// Len returns the number of rules
func (c *Chain[In, Out]) Len() int {
	return len(c.rules)
}
