// Package naming allocates short, collision-free replacement names for
// original class names.
package naming

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yacobolo/twmangle/internal/logging"
)

const (
	// DefaultAlphabet is the set of bytes the default encoder draws from.
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789-_"
	// DefaultPrefix is prepended to every generated name.
	DefaultPrefix = "tw-"
	// MaxReservedRetries bounds consecutive rejected slots for one original.
	MaxReservedRetries = 1 << 16
)

var (
	errReserved = errors.New("name is reserved")
	errBound    = errors.New("name is already bound")
	errUnsafe   = errors.New("name is not a valid identifier")
)

// Record is one allocation.
type Record struct {
	Original string
	Name     string
	// Seq is the allocation order, starting at 0.
	Seq int
}

// Options configures an Allocator.
type Options struct {
	// Prefix defaults to DefaultPrefix when nil. Point at "" to disable it.
	Prefix   *string
	Alphabet string
	Reserved Reserved
	Strategy Strategy
	Logger   logging.Logger
}

// Allocator hands out memoized names. All methods are goroutine-safe.
type Allocator struct {
	mu       sync.Mutex
	prefix   string
	alphabet string
	reserved Reserved
	strategy Strategy
	logger   logging.Logger

	counter    int
	byOriginal map[string]*Record
	owners     map[string]string // name -> original
}

// NewAllocator validates opts and returns a fresh allocator.
func NewAllocator(opts Options) (*Allocator, error) {
	prefix := DefaultPrefix
	if opts.Prefix != nil {
		prefix = *opts.Prefix
	}
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if err := validateAlphabet(alphabet); err != nil {
		return nil, err
	}
	for i := 0; i < len(prefix); i++ {
		if !isNameByte(prefix[i]) {
			return nil, fmt.Errorf("invalid prefix %q: byte %q is not allowed", prefix, prefix[i])
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Allocator{
		prefix:     prefix,
		alphabet:   alphabet,
		reserved:   opts.Reserved,
		strategy:   opts.Strategy,
		logger:     logger.WithComponent("naming"),
		byOriginal: make(map[string]*Record),
		owners:     make(map[string]string),
	}, nil
}

// Generate returns the record for original, allocating one on first use.
// It panics if the reserved policy rejects MaxReservedRetries consecutive slots.
func (a *Allocator) Generate(original string) Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.byOriginal[original]; ok {
		return *r
	}

	if a.strategy != nil {
		ctx := Context{Prefix: a.prefix, Alphabet: a.alphabet, Counter: a.counter}
		if name, ok := a.strategy.TryGenerate(original, ctx); ok {
			name = a.prefix + name
			if err := a.check(name); err != nil {
				a.logger.Warn(err, "strategy name rejected, using default encoder",
					"original", original, "name", name)
			} else {
				return a.bind(original, name)
			}
		}
	}

	for attempt := 0; ; attempt++ {
		if attempt >= MaxReservedRetries {
			panic(fmt.Sprintf("naming: %d consecutive names rejected for %q; reserved policy is too broad",
				attempt, original))
		}
		name := a.prefix + Encode(a.counter, a.alphabet)
		if err := a.check(name); err != nil {
			a.logger.Warn(err, "skipping name slot", "original", original, "name", name, "slot", a.counter)
			a.counter++
			continue
		}
		return a.bind(original, name)
	}
}

// Lookup returns the name already bound to original without allocating.
func (a *Allocator) Lookup(original string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.byOriginal[original]
	if !ok {
		return "", false
	}
	return r.Name, true
}

// Len returns the number of allocated names.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byOriginal)
}

// Prefix returns the configured prefix.
func (a *Allocator) Prefix() string { return a.prefix }

// Records returns a copy of every record in allocation order.
func (a *Allocator) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, 0, len(a.byOriginal))
	for _, r := range a.byOriginal {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ReplaceMap returns a copy of the original -> name view.
func (a *Allocator) ReplaceMap() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := make(map[string]string, len(a.byOriginal))
	for orig, r := range a.byOriginal {
		m[orig] = r.Name
	}
	return m
}

func (a *Allocator) bind(original, name string) Record {
	r := &Record{Original: original, Name: name, Seq: len(a.byOriginal)}
	a.byOriginal[original] = r
	a.owners[name] = original
	a.counter++
	a.logger.Debug("allocated name", "original", original, "name", name)
	return *r
}

func (a *Allocator) check(name string) error {
	if _, taken := a.owners[name]; taken {
		return errBound
	}
	if a.prefix == "" && name != "" && (name[0] == '-' || (name[0] >= '0' && name[0] <= '9')) {
		return errUnsafe
	}
	if name == a.prefix || strings.ContainsAny(name, " \t\r\n\"'`") {
		return errUnsafe
	}
	if a.reserved != nil && a.reserved.Contains(name) {
		return errReserved
	}
	return nil
}

// Encode maps n onto alphabet. The first byte is alphabet[n%N]; the rest is
// the bijective base-N form of n/N, empty for n < N. Distinct n give distinct
// results.
func Encode(n int, alphabet string) string {
	base := len(alphabet)
	var buf [32]byte
	i := len(buf)

	rest := n / base
	for rest > 0 {
		rest--
		i--
		buf[i] = alphabet[rest%base]
		rest /= base
	}
	return string(alphabet[n%base]) + string(buf[i:])
}

func validateAlphabet(alphabet string) error {
	if len(alphabet) < 2 {
		return fmt.Errorf("invalid alphabet %q: need at least 2 symbols", alphabet)
	}
	seen := make(map[byte]bool, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if !isNameByte(c) {
			return fmt.Errorf("invalid alphabet %q: byte %q is not allowed", alphabet, c)
		}
		if seen[c] {
			return fmt.Errorf("invalid alphabet %q: duplicate symbol %q", alphabet, c)
		}
		seen[c] = true
	}
	return nil
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}
