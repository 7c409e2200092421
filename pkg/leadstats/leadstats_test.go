package leadstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBySource(t *testing.T) {
	leads := []Lead{
		{Source: "Instagram", ShowUp: true, Closed: true},
		{Source: "ig", ShowUp: true},
		{Source: "instagram"},
		{Source: "TikTok", ShowUp: true},
		{Source: ""},
	}

	stats := BySource(leads, map[string]string{"IG": "Instagram"})
	require.Len(t, stats, 3)

	assert.Equal(t, "instagram", stats[0].Source)
	assert.Equal(t, 3, stats[0].Total)
	assert.Equal(t, 60.0, stats[0].Share)
	assert.Equal(t, 66.7, stats[0].ShowUpRate)
	assert.Equal(t, 33.3, stats[0].ClosingRate)

	assert.Equal(t, Unknown, stats[1].Source)
	assert.Equal(t, "tiktok", stats[2].Source)
	assert.Equal(t, 100.0, stats[2].ShowUpRate)
}

func TestBySourceEmpty(t *testing.T) {
	assert.Empty(t, BySource(nil, nil))
}
