package naming

// Context is the read-only allocator state handed to a Strategy.
type Context struct {
	Prefix   string
	Alphabet string
	// Counter is the slot the default encoder would use next.
	Counter int
}

// Strategy is a pluggable generation step tried before the default encoder.
// TryGenerate returns (name, true) when it produces a name for original, or
// ("", false) to fall through. The allocator prepends its prefix to the
// returned name and still enforces uniqueness and the reserved policy; a
// rejected name falls back to the default encoder.
type Strategy interface {
	TryGenerate(original string, ctx Context) (name string, handled bool)
}

// StrategyFunc adapts an ordinary function to the Strategy interface.
type StrategyFunc func(original string, ctx Context) (string, bool)

// TryGenerate calls f.
func (f StrategyFunc) TryGenerate(original string, ctx Context) (string, bool) {
	return f(original, ctx)
}

// Chain tries each strategy in order and returns the first handled result.
func Chain(strategies ...Strategy) Strategy {
	return StrategyFunc(func(original string, ctx Context) (string, bool) {
		for _, s := range strategies {
			if s == nil {
				continue
			}
			if name, ok := s.TryGenerate(original, ctx); ok {
				return name, true
			}
		}
		return "", false
	})
}

// Reserved reports whether a generated name must never be handed out.
type Reserved interface {
	Contains(name string) bool
}

// ReservedFunc adapts a predicate to the Reserved interface.
type ReservedFunc func(name string) bool

// Contains calls f.
func (f ReservedFunc) Contains(name string) bool { return f(name) }

// AnyReserved combines policies; a name is reserved if any of them contains it.
func AnyReserved(policies ...Reserved) Reserved {
	return ReservedFunc(func(name string) bool {
		for _, p := range policies {
			if p != nil && p.Contains(name) {
				return true
			}
		}
		return false
	})
}
