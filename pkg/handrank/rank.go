// Package handrank classifies 5-to-7 card poker hands using the value/suit
// bitset algorithm: one 13-bit set of values present, four 13-bit per-suit
// value sets, and a count-to-values reverse index (how many cards share each
// value, inverted into a bitset of which values have that count).
package handrank

import (
	"math/bits"

	"poker-platform/pkg/card"
)

// Kind is the hand-rank variant ordinal; total order is (Kind, Payload).
type Kind uint8

const (
	HighCard Kind = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (k Kind) String() string {
	names := []string{
		"HighCard", "OnePair", "TwoPair", "ThreeOfAKind", "Straight",
		"Flush", "FullHouse", "FourOfAKind", "StraightFlush",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Rank is the tagged union from spec §3: a variant ordinal plus a
// bit-packed u32 tiebreaker payload. Total order is (Kind, Payload).
type Rank struct {
	Kind    Kind
	Payload uint32
}

// Compare returns 1 if r > other, -1 if r < other, 0 if equal.
func (r Rank) Compare(other Rank) int {
	if r.Kind != other.Kind {
		if r.Kind > other.Kind {
			return 1
		}
		return -1
	}
	switch {
	case r.Payload > other.Payload:
		return 1
	case r.Payload < other.Payload:
		return -1
	default:
		return 0
	}
}

// wheelMask is the bit pattern for A-2-3-4-5 (values 14,2,3,4,5), expressed
// over bit positions 0..12 for values 2..14.
const wheelMask uint32 = 0b1_0000_0000_1111

// valueBit returns the bit position (0..12) for a card value (2..14).
func valueBit(v card.Value) uint {
	return uint(v - 2)
}

// rankStraight finds the highest straight in a 13-bit value set and returns
// its high-card bit position minus 3 and true, or 0 and false if none. The
// wheel (A-2-3-4-5) ranks as 0 (lowest), below 2-3-4-5-6 at 1; ten-to-ace
// ranks 9.
func rankStraight(valueSet uint32) (int, bool) {
	left := valueSet & (valueSet << 1) & (valueSet << 2) & (valueSet << 3) & (valueSet << 4)
	if left != 0 {
		idx := bits.LeadingZeros32(left)
		return 32 - 4 - idx, true
	}
	if valueSet&wheelMask == wheelMask {
		return 0, true
	}
	return 0, false
}

// keepHighest keeps only the most significant set bit.
func keepHighest(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	return 1 << (31 - bits.LeadingZeros32(v))
}

// keepN keeps the N most significant set bits, clearing the rest.
func keepN(v uint32, n int) uint32 {
	for bits.OnesCount32(v) > n {
		v &= v - 1
	}
	return v
}

// Evaluate7 classifies the best 5-card hand from 5, 6, or 7 cards.
func Evaluate7(cards []card.Card) Rank {
	var valueToCount [13]uint8
	var countToValue [5]uint32
	var suitValueSets [4]uint32
	var valueSet uint32

	for _, c := range cards {
		vb := valueBit(c.Value)
		valueSet |= 1 << vb
		valueToCount[vb]++
		suitValueSets[c.Suit] |= 1 << vb
	}

	for v, count := range valueToCount {
		countToValue[count] |= 1 << uint(v)
	}

	flushIdx := -1
	for i, sv := range suitValueSets {
		if bits.OnesCount32(sv) >= 5 {
			flushIdx = i
			break
		}
	}

	switch {
	case flushIdx >= 0:
		if high, ok := rankStraight(suitValueSets[flushIdx]); ok {
			return Rank{Kind: StraightFlush, Payload: uint32(high)}
		}
		return Rank{Kind: Flush, Payload: keepN(suitValueSets[flushIdx], 5)}

	case countToValue[4] != 0:
		high := keepHighest(valueSet ^ countToValue[4])
		return Rank{Kind: FourOfAKind, Payload: (countToValue[4] << 13) | high}

	case countToValue[3] != 0 && bits.OnesCount32(countToValue[3]) == 2:
		set := keepHighest(countToValue[3])
		pair := countToValue[3] ^ set
		return Rank{Kind: FullHouse, Payload: (set << 13) | pair}

	case countToValue[3] != 0 && countToValue[2] != 0:
		set := countToValue[3]
		pair := keepHighest(countToValue[2])
		return Rank{Kind: FullHouse, Payload: (set << 13) | pair}

	default:
	}

	if high, ok := rankStraight(valueSet); ok {
		return Rank{Kind: Straight, Payload: uint32(high)}
	}

	switch {
	case countToValue[3] != 0:
		low := keepN(valueSet^countToValue[3], 2)
		return Rank{Kind: ThreeOfAKind, Payload: (countToValue[3] << 13) | low}

	case bits.OnesCount32(countToValue[2]) >= 2:
		pairs := keepN(countToValue[2], 2)
		low := keepHighest(valueSet ^ pairs)
		return Rank{Kind: TwoPair, Payload: (pairs << 13) | low}

	case countToValue[2] == 0:
		return Rank{Kind: HighCard, Payload: keepN(valueSet, 5)}

	default:
		pair := countToValue[2]
		low := keepN(valueSet^countToValue[2], 3)
		return Rank{Kind: OnePair, Payload: (pair << 13) | low}
	}
}

// Best returns the index (into hands) of the highest-ranked hand and the
// set of all indices tied with it.
func Best(hands []Rank) (bestIdx int, ties []int) {
	if len(hands) == 0 {
		return -1, nil
	}
	bestIdx = 0
	ties = []int{0}
	for i := 1; i < len(hands); i++ {
		cmp := hands[i].Compare(hands[bestIdx])
		switch {
		case cmp > 0:
			bestIdx = i
			ties = []int{i}
		case cmp == 0:
			ties = append(ties, i)
		}
	}
	return bestIdx, ties
}
