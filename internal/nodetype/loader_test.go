package nodetype_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/nodetype"
)

func TestLoadFS(t *testing.T) {
	tests := []struct {
		name      string
		files     fstest.MapFS
		pattern   string
		wantTypes []string
		wantErr   bool
	}{
		{
			name: "merges matching files in path order",
			files: fstest.MapFS{
				"Acme.Site/NodeTypes.Page.yaml": {Data: []byte(`
'Acme:Page':
  label: Page
`)},
				"Acme.Site/NodeTypes.Text.yaml": {Data: []byte(`
'Acme:Text': {}
'Acme:Page':
  label: Overridden
`)},
				"Acme.Site/README.md": {Data: []byte("# not yaml")},
			},
			wantTypes: []string{"Acme:Page", "Acme:Text"},
		},
		{
			name: "custom pattern",
			files: fstest.MapFS{
				"types/a.yaml": {Data: []byte(`'Acme:A': {}`)},
				"other/b.yaml": {Data: []byte(`'Acme:B': {}`)},
			},
			pattern:   "types/*.yaml",
			wantTypes: []string{"Acme:A"},
		},
		{
			name: "empty file",
			files: fstest.MapFS{
				"NodeTypes.yaml": {Data: []byte("")},
			},
			wantTypes: nil,
		},
		{
			name: "invalid yaml",
			files: fstest.MapFS{
				"NodeTypes.yaml": {Data: []byte("'Acme:A': [")},
			},
			wantErr: true,
		},
		{
			name: "top level sequence",
			files: fstest.MapFS{
				"NodeTypes.yaml": {Data: []byte("- a\n- b\n")},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := nodetype.LoadFS(tt.files, tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTypes, tree.Keys())
		})
	}
}

func TestFSProvider_LaterFilesOverride(t *testing.T) {
	fsys := fstest.MapFS{
		"a/NodeTypes.yaml": {Data: []byte(`
'Acme:Page':
  label: Page
  properties:
    title: {type: string}
`)},
		"b/NodeTypes.yaml": {Data: []byte(`
'Acme:Page':
  label: Overridden
`)},
	}
	m := nodetype.NewManager(nodetype.FSProvider{FS: fsys})
	r, err := m.Registry()
	require.NoError(t, err)

	page, err := r.Get("Acme:Page")
	require.NoError(t, err)
	require.Equal(t, "Overridden", page.Label())
	require.True(t, page.HasProperty("title"))
}
