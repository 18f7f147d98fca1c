package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
)

func TestPickManager_KeywordPriority(t *testing.T) {
	policy := DefaultManagerPolicy()

	// 本部長 outranks 部長 even though the 部長 title is listed first.
	titles := []string{"営業部長", "営業本部長", "一般"}
	require.Equal(t, 1, policy.PickManager(orgunit.LevelDepartment, titles))

	require.Equal(t, -1, policy.PickManager(orgunit.LevelDepartment, []string{"一般", "主任"}))
	require.Equal(t, -1, policy.PickManager(orgunit.LevelSection, nil))
}

func TestPickManager_SubstringMatch(t *testing.T) {
	policy := DefaultManagerPolicy()

	require.Equal(t, 0, policy.PickManager(orgunit.LevelSection, []string{"第一営業課長"}))
	require.Equal(t, 2, policy.PickManager(orgunit.LevelCourse, []string{"一般", "一般", "チームリーダー"}))
}

func TestLoadManagerPolicy_FillsMissingLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	content := "keywords:\n  department:\n    - 統括\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policy, err := LoadManagerPolicy(path)
	require.NoError(t, err)

	require.Equal(t, []string{"統括"}, policy.Keywords[orgunit.LevelDepartment])
	// Levels absent from the file keep the built-in keywords.
	require.Equal(t, DefaultManagerPolicy().Keywords[orgunit.LevelSection], policy.Keywords[orgunit.LevelSection])
	require.Equal(t, DefaultManagerPolicy().Keywords[orgunit.LevelCourse], policy.Keywords[orgunit.LevelCourse])
}

func TestLoadManagerPolicy_MissingFile(t *testing.T) {
	_, err := LoadManagerPolicy(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}
