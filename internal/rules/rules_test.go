package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/rules"
)

func TestDefaultPreset(t *testing.T) {
	p := rules.Default()
	require.NotNil(t, p.BioPage)
	require.NotNil(t, p.RosterPage)
	require.Equal(t, "div.season", p.BioPage.Season)
	require.Equal(t, "div#M_", p.RosterPage.Men)
}

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	y := `
default:
  roster_page:
    distance: "section.dist"
    men: "#boys"
    women: "#girls"
    row: "li"
    profile_link: "a@href"
Legacy2019:
  bio_page:
    name: "h1"
    season: "div.yr"
`
	require.NoError(t, os.WriteFile(path, []byte(y), 0o644))

	r, err := rules.Load(path)
	require.NoError(t, err)

	// 不区分大小写
	p, ok := r.GetPreset("legacy2019")
	require.True(t, ok)
	require.Equal(t, "div.yr", p.BioPage.Season)
	require.Nil(t, p.RosterPage)

	// 未知名称回退 default
	p, ok = r.GetPreset("nope")
	require.True(t, ok)
	require.Equal(t, "#boys", p.RosterPage.Men)

	// Resolve 补齐缺失页面
	res := r.Resolve("legacy2019")
	require.Equal(t, "h1", res.BioPage.Name)
	require.Equal(t, rules.Default().RosterPage.Men, res.RosterPage.Men)

	res = r.Resolve("")
	require.Equal(t, "li", res.RosterPage.Row)
	require.Equal(t, rules.Default().BioPage.Row, res.BioPage.Row)
}

func TestResolveNil(t *testing.T) {
	var r *rules.Rules
	_, ok := r.GetPreset("default")
	require.False(t, ok)
	p := r.Resolve("default")
	require.Equal(t, rules.Default().BioPage.Name, p.BioPage.Name)
}

func TestLoadMissing(t *testing.T) {
	_, err := rules.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
