package tournament_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/mangar2/qaplatester/pkg/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBookDefaultsToStartingPosition(t *testing.T) {
	book := tournament.NewOpeningBook(nil, true, nil)
	o := book.Next()
	assert.Equal(t, "", o.FEN)
}

func TestSequentialBookWrapsAround(t *testing.T) {
	openings := []tournament.Opening{{FEN: "a"}, {FEN: "b"}, {FEN: "c"}}
	book := tournament.NewOpeningBook(openings, true, nil)
	var got []string
	for i := 0; i < 5; i++ {
		got = append(got, book.Next().FEN)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, got)
}

func TestShuffledBookIsReproducibleBySeed(t *testing.T) {
	base := []tournament.Opening{{FEN: "a"}, {FEN: "b"}, {FEN: "c"}, {FEN: "d"}}

	in1 := append([]tournament.Opening(nil), base...)
	book1 := tournament.NewOpeningBook(in1, false, rand.New(rand.NewSource(7)))

	in2 := append([]tournament.Opening(nil), base...)
	book2 := tournament.NewOpeningBook(in2, false, rand.New(rand.NewSource(7)))

	for i := 0; i < 4; i++ {
		assert.Equal(t, book1.Next(), book2.Next())
	}
}

func TestParseEPDBookExtractsIDTag(t *testing.T) {
	epd := `rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - id "start"; c0 "comment";
# a comment line is skipped

r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq -`
	openings, err := tournament.ParseEPDBook(strings.NewReader(epd))
	require.NoError(t, err)
	require.Len(t, openings, 2)

	assert.Equal(t, "start", openings[0].Tags["Event"])
	assert.True(t, strings.HasSuffix(openings[0].FEN, "0 1"))
	assert.Empty(t, openings[1].Tags["Event"])
}
