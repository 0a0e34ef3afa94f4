// Package cardcheck validates payment card numbers with the Luhn checksum and
// identifies the issuing network from the number's prefix. It never contacts
// an issuer; a valid result only means the number is well formed.
package cardcheck

import (
	"regexp"
	"slices"
	"strings"
)

// MinDigits is the shortest number Check accepts as valid.
const MinDigits = 12

// Network describes a card brand.
type Network struct {
	Name    string
	Pattern *regexp.Regexp
	Lengths []int
	Format  []int // digit group sizes for display
}

// Networks is checked in order; the first matching prefix wins.
var Networks = []*Network{
	{Name: "American Express", Pattern: regexp.MustCompile(`^3[47]`), Lengths: []int{15}, Format: []int{4, 6, 5}},
	{Name: "Visa", Pattern: regexp.MustCompile(`^4`), Lengths: []int{13, 16, 19}, Format: []int{4, 4, 4, 4, 3}},
	{Name: "Mastercard", Pattern: regexp.MustCompile(`^(5[1-5]|2[2-7])`), Lengths: []int{16}, Format: []int{4, 4, 4, 4}},
	{Name: "Discover", Pattern: regexp.MustCompile(`^(6011|65|64[4-9])`), Lengths: []int{16, 19}, Format: []int{4, 4, 4, 4, 3}},
	{Name: "JCB", Pattern: regexp.MustCompile(`^35(2[89]|[3-8])`), Lengths: []int{16, 17, 18, 19}, Format: []int{4, 4, 4, 4, 3}},
	{Name: "Diners Club", Pattern: regexp.MustCompile(`^(30[0-5]|36|38)`), Lengths: []int{14, 16}, Format: []int{4, 6, 4, 2}},
	{Name: "UnionPay", Pattern: regexp.MustCompile(`^62`), Lengths: []int{16, 17, 18, 19}, Format: []int{4, 4, 4, 4, 3}},
}

// DefaultFormat groups numbers of unknown networks.
var DefaultFormat = []int{4, 4, 4, 4, 3}

// Result is the outcome of Check.
type Result struct {
	Digits    string
	Formatted string
	Network   *Network // nil when no prefix matched
	LengthOK  bool     // digit count is one the network issues; false without a network
	Valid     bool     // at least MinDigits digits and a passing checksum
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Luhn reports whether digits pass the mod-10 checksum. It is false for an
// empty string or any non-digit.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// Detect returns the first network whose prefix matches digits, or nil.
func Detect(digits string) *Network {
	for _, n := range Networks {
		if n.Pattern.MatchString(digits) {
			return n
		}
	}
	return nil
}

// Group splits digits into groups of the given sizes joined by spaces.
// Digits beyond the last group are dropped.
func Group(digits string, format []int) string {
	var parts []string
	pos := 0
	for _, size := range format {
		if pos >= len(digits) {
			break
		}
		end := min(pos+size, len(digits))
		parts = append(parts, digits[pos:end])
		pos = end
	}
	return strings.Join(parts, " ")
}

// Check validates a card number typed in any layout.
func Check(input string) Result {
	digits := Digits(input)
	r := Result{
		Digits:  digits,
		Network: Detect(digits),
		Valid:   len(digits) >= MinDigits && Luhn(digits),
	}

	format := DefaultFormat
	if r.Network != nil {
		format = r.Network.Format
		r.LengthOK = slices.Contains(r.Network.Lengths, len(digits))
	}
	r.Formatted = Group(digits, format)
	return r
}

// ExpectedLengths describes the digit counts to expect for a result.
func (r Result) ExpectedLengths() []int {
	if r.Network != nil {
		return r.Network.Lengths
	}
	return []int{13, 14, 15, 16, 17, 18, 19}
}
