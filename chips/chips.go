package chips

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Denomination is a chip face value in rupees.
type Denomination int64

const (
	D100   Denomination = 100
	D500   Denomination = 500
	D5000  Denomination = 5000
	D10000 Denomination = 10000
)

// Denominations lists every face value the cage stocks, smallest first.
var Denominations = []Denomination{D100, D500, D5000, D10000}

var (
	ErrUnknownDenomination = errors.New("unknown chip denomination")
	ErrNegativeCount       = errors.New("chip count cannot be negative")
	ErrNegativeInventory   = errors.New("chip subtraction would leave a negative count")
	ErrSubCentDenomination = errors.New("amount is not representable in chip denominations")
)

// Set is an immutable count of chips per denomination. The zero value is an
// empty set.
type Set struct {
	counts [4]int64
}

func index(d Denomination) (int, bool) {
	switch d {
	case D100:
		return 0, true
	case D500:
		return 1, true
	case D5000:
		return 2, true
	case D10000:
		return 3, true
	}
	return 0, false
}

// New builds a Set from a denomination→count mapping. Unknown denominations
// and negative counts are rejected.
func New(counts map[Denomination]int64) (Set, error) {
	var s Set
	for d, n := range counts {
		i, ok := index(d)
		if !ok {
			return Set{}, fmt.Errorf("%w: %d", ErrUnknownDenomination, d)
		}
		if n < 0 {
			return Set{}, fmt.Errorf("%w: %d x %d", ErrNegativeCount, n, d)
		}
		s.counts[i] = n
	}
	return s, nil
}

// MustNew is New for literals known to be valid. Panics otherwise.
func MustNew(counts map[Denomination]int64) Set {
	s, err := New(counts)
	if err != nil {
		panic(err)
	}
	return s
}

// CountOf returns the number of chips of one denomination.
func (s Set) CountOf(d Denomination) int64 {
	i, ok := index(d)
	if !ok {
		return 0
	}
	return s.counts[i]
}

// Count returns the total number of chips across denominations.
func (s Set) Count() int64 {
	var total int64
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Value returns the monetary value of the set in rupees.
func (s Set) Value() decimal.Decimal {
	var total int64
	for i, d := range Denominations {
		total += s.counts[i] * int64(d)
	}
	return decimal.NewFromInt(total)
}

// IsZero reports whether the set holds no chips.
func (s Set) IsZero() bool {
	for _, n := range s.counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// Add returns the per-denomination sum of two sets.
func (s Set) Add(o Set) Set {
	var out Set
	for i := range s.counts {
		out.counts[i] = s.counts[i] + o.counts[i]
	}
	return out
}

// Subtract returns s minus o, failing with ErrNegativeInventory if any
// denomination would go below zero. No cross-denomination substitution.
func (s Set) Subtract(o Set) (Set, error) {
	var out Set
	for i := range s.counts {
		out.counts[i] = s.counts[i] - o.counts[i]
		if out.counts[i] < 0 {
			return Set{}, fmt.Errorf("%w: %d short by %d", ErrNegativeInventory, Denominations[i], -out.counts[i])
		}
	}
	return out, nil
}

// Covers reports whether s has at least o's count for every denomination.
func (s Set) Covers(o Set) bool {
	for i := range s.counts {
		if s.counts[i] < o.counts[i] {
			return false
		}
	}
	return true
}

// Decompose converts an amount into chips by canonical greedy reduction from
// the largest denomination down. Greedy is exact here because every
// denomination divides the next one up. Amounts that are negative, fractional,
// or not a multiple of 100 are rejected with ErrSubCentDenomination; nothing
// is ever silently truncated.
func Decompose(amount decimal.Decimal) (Set, error) {
	if amount.IsNegative() || !amount.IsInteger() {
		return Set{}, fmt.Errorf("%w: %s", ErrSubCentDenomination, amount)
	}
	rest := amount.IntPart()
	if rest%int64(D100) != 0 {
		return Set{}, fmt.Errorf("%w: %s leaves remainder %d", ErrSubCentDenomination, amount, rest%int64(D100))
	}
	var s Set
	for i := len(Denominations) - 1; i >= 0; i-- {
		face := int64(Denominations[i])
		s.counts[i] = rest / face
		rest %= face
	}
	return s, nil
}

// Counts returns the set as a denomination→count map, omitting zero counts.
func (s Set) Counts() map[Denomination]int64 {
	out := make(map[Denomination]int64, len(Denominations))
	for i, d := range Denominations {
		if s.counts[i] != 0 {
			out[d] = s.counts[i]
		}
	}
	return out
}

// String renders like "100x10 500x40 5000x6 10000x1".
func (s Set) String() string {
	out := ""
	for i, d := range Denominations {
		if s.counts[i] == 0 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%dx%d", d, s.counts[i])
	}
	if out == "" {
		return "empty"
	}
	return out
}

// MarshalJSON encodes the set as {"100":10,"500":40,...} including zeros, the
// shape stored in the ledger's chip_breakdown columns.
func (s Set) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, len(Denominations))
	for i, d := range Denominations {
		m[strconv.FormatInt(int64(d), 10)] = s.counts[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the same shape, rejecting unknown keys and negative
// counts.
func (s *Set) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Set
	for k, n := range m {
		face, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownDenomination, k)
		}
		i, ok := index(Denomination(face))
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDenomination, k)
		}
		if n < 0 {
			return fmt.Errorf("%w: %d x %s", ErrNegativeCount, n, k)
		}
		out.counts[i] = n
	}
	*s = out
	return nil
}
