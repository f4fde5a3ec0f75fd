package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parsedIndexes(t *testing.T, model interface{}) map[string]*schema.Index {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	byName := map[string]*schema.Index{}
	for _, idx := range s.ParseIndexes() {
		byName[idx.Name] = idx
	}
	return byName
}

func indexColumns(idx *schema.Index) []string {
	cols := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		cols = append(cols, f.DBName)
	}
	return cols
}

// The follow tables rely on unique indexes to reject a second insert of the
// same edge. The forward table holds two nullable target columns, so each
// kind needs its own partial index; one index over both columns would treat
// every row as distinct through its NULL half.
func TestFollowingEdgeIndexes(t *testing.T) {
	indexes := parsedIndexes(t, &Following{})

	user := indexes["idx_following_user_edge"]
	require.NotNil(t, user)
	require.Equal(t, "UNIQUE", user.Class)
	require.Equal(t, "kind = 'user'", user.Where)
	require.ElementsMatch(t, []string{"user_id", "target_user_id"}, indexColumns(user))

	group := indexes["idx_following_group_edge"]
	require.NotNil(t, group)
	require.Equal(t, "UNIQUE", group.Class)
	require.Equal(t, "kind = 'group'", group.Where)
	require.ElementsMatch(t, []string{"user_id", "group_id"}, indexColumns(group))
}

func TestFollowedMirrorIndex(t *testing.T) {
	indexes := parsedIndexes(t, &Followed{})

	mirror := indexes["idx_followed_edge"]
	require.NotNil(t, mirror)
	require.Equal(t, "UNIQUE", mirror.Class)
	require.ElementsMatch(t, []string{"user_id", "follower_id"}, indexColumns(mirror))
}
