package activity

import (
	"fmt"
	"testing"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestPrependKeepsNewestFirstAndCaps(t *testing.T) {
	var log []domain.Activity
	for i := 0; i < Capacity+7; i++ {
		log = Prepend(log, domain.Activity{ID: fmt.Sprintf("a%d", i)})
	}

	require.Len(t, log, Capacity)
	require.Equal(t, fmt.Sprintf("a%d", Capacity+6), log[0].ID)
	require.Equal(t, "a7", log[Capacity-1].ID)
}

func TestPrependDoesNotAlias(t *testing.T) {
	log := []domain.Activity{{ID: "old"}}
	next := Prepend(log, domain.Activity{ID: "new"})
	next[1].ID = "mutated"

	require.Equal(t, "old", log[0].ID)
}

func TestRecent(t *testing.T) {
	log := []domain.Activity{{ID: "3"}, {ID: "2"}, {ID: "1"}}

	require.Len(t, Recent(log, 2), 2)
	require.Equal(t, "3", Recent(log, 2)[0].ID)
	require.Len(t, Recent(log, 10), 3)
	require.Len(t, Recent(log, 0), 3)
	require.Empty(t, Recent(nil, 5))
}
