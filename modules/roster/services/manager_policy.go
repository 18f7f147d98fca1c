package services

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
)

// ManagerPolicy decides which position titles mark an employee as a unit
// manager, per hierarchy level. Keyword order is priority order: the first
// keyword with a titled employee wins. The tables are data so deployments can
// swap them without touching the commit path.
type ManagerPolicy struct {
	Keywords map[orgunit.Level][]string `yaml:"keywords"`
}

func DefaultManagerPolicy() *ManagerPolicy {
	return &ManagerPolicy{
		Keywords: map[orgunit.Level][]string{
			orgunit.LevelDepartment: {"本部長", "部長"},
			orgunit.LevelSection:    {"課長", "次長"},
			orgunit.LevelCourse:     {"係長", "主任", "リーダー"},
		},
	}
}

// LoadManagerPolicy reads a keyword table from a YAML file. Levels missing
// from the file fall back to the defaults.
func LoadManagerPolicy(path string) (*ManagerPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	policy := &ManagerPolicy{}
	if err := yaml.Unmarshal(raw, policy); err != nil {
		return nil, err
	}
	defaults := DefaultManagerPolicy()
	if policy.Keywords == nil {
		policy.Keywords = defaults.Keywords
		return policy, nil
	}
	for level, keywords := range defaults.Keywords {
		if _, ok := policy.Keywords[level]; !ok {
			policy.Keywords[level] = keywords
		}
	}
	return policy, nil
}

// PickManager returns the index of the first title matching the level's
// keyword list, scanning keywords in priority order, or -1 when no title
// qualifies. Ties within a keyword are broken by enumeration order.
func (p *ManagerPolicy) PickManager(level orgunit.Level, titles []string) int {
	for _, keyword := range p.Keywords[level] {
		for i, title := range titles {
			if strings.Contains(title, keyword) {
				return i
			}
		}
	}
	return -1
}
