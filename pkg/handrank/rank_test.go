package handrank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"poker-platform/pkg/card"
)

func c(v card.Value, s card.Suit) card.Card { return card.Card{Value: v, Suit: s} }

func TestOnePairBeatsHighCard(t *testing.T) {
	pair := Evaluate7([]card.Card{
		c(card.King, card.Spades), c(card.King, card.Hearts),
		c(card.Nine, card.Diamonds), c(card.Five, card.Clubs),
		c(card.Three, card.Diamonds), c(card.Jack, card.Spades),
		c(card.Two, card.Hearts),
	})
	high := Evaluate7([]card.Card{
		c(card.Queen, card.Spades), c(card.Jack, card.Diamonds),
		c(card.Nine, card.Diamonds), c(card.Five, card.Clubs),
		c(card.Three, card.Diamonds), c(card.Eight, card.Spades),
		c(card.Two, card.Hearts),
	})
	require.Equal(t, OnePair, pair.Kind)
	require.Equal(t, HighCard, high.Kind)
	require.Equal(t, 1, pair.Compare(high))
}

func TestWheelStraightRanksBelowSixHigh(t *testing.T) {
	wheel := Evaluate7([]card.Card{
		c(card.Ace, card.Spades), c(card.Two, card.Hearts),
		c(card.Three, card.Diamonds), c(card.Four, card.Clubs),
		c(card.Five, card.Spades), c(card.King, card.Hearts),
		c(card.Queen, card.Diamonds),
	})
	sixHigh := Evaluate7([]card.Card{
		c(card.Two, card.Spades), c(card.Three, card.Hearts),
		c(card.Four, card.Diamonds), c(card.Five, card.Clubs),
		c(card.Six, card.Spades), c(card.King, card.Hearts),
		c(card.Queen, card.Diamonds),
	})
	require.Equal(t, Straight, wheel.Kind)
	require.Equal(t, Straight, sixHigh.Kind)
	require.Equal(t, -1, wheel.Compare(sixHigh))
}

func TestFullHousePicksHigherTripsAsSet(t *testing.T) {
	// Two trips: Queens and Nines -> FullHouse(Q over 9), not the reverse.
	r := Evaluate7([]card.Card{
		c(card.Queen, card.Spades), c(card.Queen, card.Hearts), c(card.Queen, card.Diamonds),
		c(card.Nine, card.Hearts), c(card.Nine, card.Diamonds), c(card.Nine, card.Clubs),
		c(card.Two, card.Spades),
	})
	require.Equal(t, FullHouse, r.Kind)
	require.Equal(t, uint32(1<<uint(card.Queen-2)<<13|1<<uint(card.Nine-2)), r.Payload)
}

func TestFourOfAKindBeatsFullHouse(t *testing.T) {
	quad := Evaluate7([]card.Card{
		c(card.Five, card.Spades), c(card.Five, card.Hearts), c(card.Five, card.Diamonds), c(card.Five, card.Clubs),
		c(card.Two, card.Spades), c(card.Three, card.Hearts), c(card.Four, card.Diamonds),
	})
	full := Evaluate7([]card.Card{
		c(card.King, card.Spades), c(card.King, card.Hearts), c(card.King, card.Diamonds),
		c(card.Nine, card.Hearts), c(card.Nine, card.Diamonds),
		c(card.Two, card.Spades), c(card.Three, card.Hearts),
	})
	require.Equal(t, 1, quad.Compare(full))
}

func TestStraightFlushBeatsFourOfAKind(t *testing.T) {
	sf := Evaluate7([]card.Card{
		c(card.Five, card.Spades), c(card.Six, card.Spades), c(card.Seven, card.Spades),
		c(card.Eight, card.Spades), c(card.Nine, card.Spades),
		c(card.Two, card.Hearts), c(card.Three, card.Diamonds),
	})
	quad := Evaluate7([]card.Card{
		c(card.Five, card.Clubs), c(card.Five, card.Hearts), c(card.Five, card.Diamonds), c(card.Five, card.Spades),
		c(card.Two, card.Spades), c(card.Three, card.Hearts), c(card.Four, card.Diamonds),
	})
	require.Equal(t, 1, sf.Compare(quad))
}

func TestBestPicksSingleWinner(t *testing.T) {
	hands := []Rank{
		{Kind: OnePair, Payload: 10},
		{Kind: TwoPair, Payload: 5},
		{Kind: OnePair, Payload: 99},
	}
	idx, ties := Best(hands)
	require.Equal(t, 1, idx)
	require.Equal(t, []int{1}, ties)
}

func TestBestPicksTies(t *testing.T) {
	hands := []Rank{
		{Kind: Flush, Payload: 10},
		{Kind: Flush, Payload: 10},
		{Kind: OnePair, Payload: 99},
	}
	idx, ties := Best(hands)
	require.Equal(t, 0, idx)
	require.Equal(t, []int{0, 1}, ties)
}
