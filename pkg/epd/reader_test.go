package epd_test

import (
	"strings"
	"testing"

	"github.com/mangar2/qaplatester/pkg/epd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadParsesIDAndBestMoves(t *testing.T) {
	suite := `rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - bm e4 d4; id "opening.1"; c0 "book move; either is fine";
# skip this line

r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - bm Nc3 Nxe5;`
	entries, err := epd.Read(strings.NewReader(suite))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "opening.1", entries[0].ID)
	assert.Equal(t, []string{"e4", "d4"}, entries[0].BestSAN)
	assert.True(t, strings.HasSuffix(entries[0].FEN, "0 1"))

	assert.Equal(t, "", entries[1].ID)
	assert.Equal(t, []string{"Nc3", "Nxe5"}, entries[1].BestSAN)
}

func TestReadRejectsMalformedLine(t *testing.T) {
	_, err := epd.Read(strings.NewReader("not enough fields"))
	assert.Error(t, err)
}
