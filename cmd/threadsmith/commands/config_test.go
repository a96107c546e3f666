package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	"threadsmith-backend/services/collector"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Targets: []collector.Target{
			{Name: "エンジニア", Keywords: []string{"golang"}},
			{Name: "主婦"},
		},
		Scrape: ScrapeConfig{MaxPosts: 30, MinLikes: 5},
	}
	require.NoError(t, valid.validate())

	duplicate := valid
	duplicate.Targets = []collector.Target{{Name: "a_target"}, {Name: "a_target"}}
	require.Error(t, duplicate.validate())

	unnamed := valid
	unnamed.Targets = []collector.Target{{Name: ""}}
	require.Error(t, unnamed.validate())

	negative := valid
	negative.Scrape.MinLikes = -1
	require.Error(t, negative.validate())

	negativeRetention := valid
	negativeRetention.Retention = -1
	require.Error(t, negativeRetention.validate())
}
