package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

func TestSite_DimensionsBuild(t *testing.T) {
	cfg, err := dimensionspace.LoadConfig(SiteFS(), "dimensions.yaml")
	require.NoError(t, err)
	g, err := cfg.Build()
	require.NoError(t, err)
	require.Equal(t, 4, g.Points().Len())
	require.True(t, g.Has(dimensionspace.NewPoint(map[string]string{"language": "en_GB"})))
}

func TestSite_NodeTypesBuild(t *testing.T) {
	tree, err := nodetype.LoadFS(SiteFS(), nodetype.DefaultPattern)
	require.NoError(t, err)
	reg, err := nodetype.NewManager(nodetype.StaticProvider(tree)).Registry()
	require.NoError(t, err)

	for _, name := range []nodetype.Name{"Site:Sites", "Site:Homepage", "Site:Page", "Site:Text", "Site:Image"} {
		require.True(t, reg.Has(name), name)
	}

	home, err := reg.Get("Site:Homepage")
	require.NoError(t, err)
	require.False(t, home.IsOfType(nodetype.RootTypeName))
	var slots []string
	for _, c := range home.TetheredNodes() {
		slots = append(slots, string(c.Name))
	}
	require.Equal(t, []string{"main", "footer"}, slots)

	sites, err := reg.Get("Site:Sites")
	require.NoError(t, err)
	require.True(t, sites.IsOfType(nodetype.RootTypeName))
	require.True(t, sites.AllowsChildNodeType(home))

	page, err := reg.Get("Site:Page")
	require.NoError(t, err)
	require.False(t, sites.AllowsChildNodeType(page))
	require.True(t, home.AllowsChildNodeType(page))

	text, err := reg.Get("Site:Text")
	require.NoError(t, err)
	require.True(t, home.AllowsGrandchildNodeType("main", text))
	require.False(t, home.AllowsChildNodeType(text))
}

func TestWriteSite(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteSite(dir, false)
	require.NoError(t, err)
	require.Len(t, written, 3)
	require.FileExists(t, filepath.Join(dir, "dimensions.yaml"))
	require.FileExists(t, filepath.Join(dir, "NodeTypes", "Site", "NodeTypes.Document.yaml"))

	_, err = WriteSite(dir, false)
	require.ErrorIs(t, err, ErrFileExists)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dimensions.yaml"), []byte("changed"), 0o600))
	_, err = WriteSite(dir, true)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "dimensions.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "dimensions:")
}

func TestWriteSite_LeavesPartialTreeAlone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dimensions.yaml"), []byte("mine"), 0o600))

	_, err := WriteSite(dir, false)
	require.ErrorIs(t, err, ErrFileExists)
	require.NoDirExists(t, filepath.Join(dir, "NodeTypes"))
}
