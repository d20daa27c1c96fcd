package nodetype_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/contentgraph/internal/nodetype"
)

func mustRegistry(t *testing.T, yml string) *nodetype.Registry {
	t.Helper()
	tree, err := nodetype.ParseYAML([]byte(yml))
	require.NoError(t, err)
	r, err := nodetype.NewRegistry(tree)
	require.NoError(t, err)
	return r
}

func mustType(t *testing.T, r *nodetype.Registry, name string) *nodetype.NodeType {
	t.Helper()
	nt, err := r.Get(nodetype.Name(name))
	require.NoError(t, err)
	return nt
}

func TestRegistry_InjectsRootType(t *testing.T) {
	r := mustRegistry(t, `'Acme:Page': {}`)

	root := r.Root()
	require.NotNil(t, root)
	require.Equal(t, nodetype.RootTypeName, root.Name())
	require.True(t, root.IsRoot())
	require.False(t, mustType(t, r, "Acme:Page").IsRoot())
}

func TestRegistry_IsOfType(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Base': {abstract: true}
'Acme:Document':
  superTypes: {'Acme:Base': true}
'Acme:Page':
  superTypes: {'Acme:Document': true}
`)
	page := mustType(t, r, "Acme:Page")

	require.True(t, page.IsOfType("Acme:Page"), "reflexive")
	require.True(t, page.IsOfType("Acme:Document"))
	require.True(t, page.IsOfType("Acme:Base"), "transitive")
	require.False(t, mustType(t, r, "Acme:Base").IsOfType("Acme:Page"))
	require.True(t, mustType(t, r, "Acme:Base").IsAbstract())

	require.Len(t, r.All(false), 3, "abstract types are excluded")
	require.Len(t, r.All(true), 4)

	var subs []nodetype.Name
	for _, s := range r.SubNodeTypes("Acme:Base", true) {
		subs = append(subs, s.Name())
	}
	require.Equal(t, []nodetype.Name{"Acme:Document", "Acme:Page"}, subs)
}

func TestRegistry_AbsentSuperTypeIsSticky(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Hideable':
  properties:
    hidden: {type: boolean, defaultValue: false}
'Acme:Content':
  superTypes: {'Acme:Hideable': true}
  properties:
    title: {type: string}
'Acme:Text':
  superTypes:
    'Acme:Content': true
    'Acme:Hideable': false
'Acme:Image':
  superTypes:
    'Acme:Content': true
    'Acme:Hideable': ~
`)
	text := mustType(t, r, "Acme:Text")
	require.True(t, text.IsOfType("Acme:Content"))
	require.False(t, text.IsOfType("Acme:Hideable"), "absence wins over inheritance via Content")
	require.True(t, text.HasProperty("title"))
	require.False(t, text.HasProperty("hidden"), "absent ancestor configuration is not merged")

	require.False(t, mustType(t, r, "Acme:Image").IsOfType("Acme:Hideable"), "null counts as absent")
	require.True(t, mustType(t, r, "Acme:Content").IsOfType("Acme:Hideable"), "sibling declarations are unaffected")

	supers := text.DeclaredSuperTypes()
	require.Len(t, supers, 1)
	require.Equal(t, nodetype.Name("Acme:Content"), supers[0].Name())
}

func TestRegistry_FinalSuperType(t *testing.T) {
	tree, err := nodetype.ParseYAML([]byte(`
'Acme:Sealed': {final: true}
'Acme:Derived':
  superTypes: {'Acme:Sealed': true}
`))
	require.NoError(t, err)

	_, err = nodetype.NewRegistry(tree)
	require.ErrorIs(t, err, nodetype.ErrNodeConfiguration)
	require.ErrorIs(t, err, nodetype.ErrNodeTypeIsFinal)

	var nodeErr *nodetype.NodeConfigurationError
	require.True(t, errors.As(err, &nodeErr))
	require.Equal(t, nodetype.Name("Acme:Derived"), nodeErr.NodeType)

	var finalErr *nodetype.NodeTypeIsFinalError
	require.True(t, errors.As(err, &finalErr))
	require.Equal(t, nodetype.Name("Acme:Sealed"), finalErr.SuperType)
}

func TestRegistry_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "super type cycle",
			yaml: `
'Acme:A': {superTypes: {'Acme:B': true}}
'Acme:B': {superTypes: {'Acme:C': true}}
'Acme:C': {superTypes: {'Acme:A': true}}
`,
			wantErr: nodetype.ErrConfiguration,
		},
		{
			name:    "unknown super type",
			yaml:    `'Acme:A': {superTypes: {'Acme:Missing': true}}`,
			wantErr: nodetype.ErrNodeTypeNotFound,
		},
		{
			name:    "super types not a mapping",
			yaml:    `'Acme:A': {superTypes: ['Acme:B']}`,
			wantErr: nodetype.ErrNodeConfiguration,
		},
		{
			name: "property and reference collision",
			yaml: `
'Acme:A':
  properties:
    link: {type: string}
  references:
    link: {}
`,
			wantErr: nodetype.ErrNodeConfiguration,
		},
		{
			name: "legacy reference collides with reference",
			yaml: `
'Acme:A':
  properties:
    link: {type: reference}
  references:
    link: {}
`,
			wantErr: nodetype.ErrNodeConfiguration,
		},
		{
			name: "child node without type",
			yaml: `
'Acme:A':
  childNodes:
    main: {position: start}
`,
			wantErr: nodetype.ErrNodeConfiguration,
		},
		{
			name: "non boolean constraint",
			yaml: `
'Acme:A':
  constraints:
    nodeTypes: {'Acme:B': yes please}
`,
			wantErr: nodetype.ErrNodeConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := nodetype.ParseYAML([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = nodetype.NewRegistry(tree)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_MergeOrder(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Root':
  label: root
  properties:
    title: {type: string, defaultValue: from-root}
    color: {type: string, defaultValue: red}
'Acme:Left':
  superTypes: {'Acme:Root': true}
  properties:
    title: {defaultValue: from-left}
'Acme:Right':
  superTypes: {'Acme:Root': true}
  properties:
    color: {defaultValue: blue}
'Acme:Diamond':
  superTypes: {'Acme:Left': true, 'Acme:Right': true}
'Acme:Redeclared':
  superTypes: {'Acme:Left': true, 'Acme:Root': true}
'Acme:Own':
  superTypes: {'Acme:Left': true}
  label: own
  properties:
    title: {defaultValue: from-own}
`)

	require.Equal(t, map[string]any{"title": "from-left", "color": "blue"},
		mustType(t, r, "Acme:Diamond").DefaultValuesForProperties())

	require.Equal(t, map[string]any{"title": "from-root", "color": "red"},
		mustType(t, r, "Acme:Redeclared").DefaultValuesForProperties(),
		"a directly declared super type overrides the same type inherited further away")

	own := mustType(t, r, "Acme:Own")
	require.Equal(t, "own", own.Label())
	require.Equal(t, map[string]any{"title": "from-own", "color": "red"}, own.DefaultValuesForProperties())
	p, ok := own.Property("title")
	require.True(t, ok)
	require.Equal(t, "string", p.Type, "type is inherited from the ancestor declaration")
}

func TestRegistry_SharedIndirectAncestorKeepsFirstPosition(t *testing.T) {
	r := mustRegistry(t, `
'Acme:X':
  properties:
    title: {type: string, defaultValue: from-x}
'Acme:A':
  superTypes: {'Acme:X': true}
  properties:
    title: {defaultValue: from-a}
'Acme:B':
  superTypes: {'Acme:X': true}
'Acme:T':
  superTypes: {'Acme:A': true, 'Acme:B': true}
`)

	// Merge order is X, A, B: reaching X again through B does not move it
	// behind A, so A's default survives.
	require.Equal(t, map[string]any{"title": "from-a"}, mustType(t, r, "Acme:T").DefaultValuesForProperties())
	require.True(t, mustType(t, r, "Acme:T").IsOfType("Acme:X"))
}

func TestRegistry_LegacyReferenceMigration(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Teaser':
  properties:
    title: {type: string}
    target:
      type: reference
      constraints:
        nodeTypes: {'Acme:Page': true}
    related: {type: references}
    removed: ~
`)
	teaser := mustType(t, r, "Acme:Teaser")

	require.True(t, teaser.HasProperty("title"))
	require.False(t, teaser.HasProperty("target"))
	require.False(t, teaser.HasProperty("removed"))

	target, ok := teaser.Reference("target")
	require.True(t, ok)
	require.Equal(t, 1, target.MaxItems)
	require.Equal(t, nodetype.Constraints{"Acme:Page": true}, target.Constraints)

	related, ok := teaser.Reference("related")
	require.True(t, ok)
	require.Equal(t, 0, related.MaxItems)
}

func TestRegistry_ChildNodeOrdering(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Collection': {}
'Acme:Page':
  childNodes:
    footer: {type: 'Acme:Collection', position: end}
    main: {type: 'Acme:Collection'}
    header: {type: 'Acme:Collection', position: start}
    sidebar: {type: 'Acme:Collection', position: 'after main'}
    banner: {type: 'Acme:Collection', position: 'start 100'}
    teaser: {type: 'Acme:Collection', position: 'before footer'}
    second: {type: 'Acme:Collection', position: 20}
    first: {type: 'Acme:Collection', position: 10}
`)
	var names []string
	for _, c := range mustType(t, r, "Acme:Page").TetheredNodes() {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"banner", "header", "main", "sidebar", "first", "second", "teaser", "footer"}, names)
}

func TestNodeType_AllowsGrandchildNodeType(t *testing.T) {
	r := mustRegistry(t, `
'Acme:Content': {}
'Acme:Text':
  superTypes: {'Acme:Content': true}
'Acme:Image':
  superTypes: {'Acme:Content': true}
'Acme:Collection':
  constraints:
    nodeTypes: {'Acme:Content': true, '*': false}
'Acme:Page':
  childNodes:
    main:
      type: 'Acme:Collection'
      constraints:
        nodeTypes: {'Acme:Image': false}
`)
	page := mustType(t, r, "Acme:Page")
	text := mustType(t, r, "Acme:Text")
	image := mustType(t, r, "Acme:Image")

	require.True(t, page.AllowsGrandchildNodeType("main", text))
	require.False(t, page.AllowsGrandchildNodeType("main", image), "slot constraints override the slot type's")
	require.False(t, page.AllowsGrandchildNodeType("main", page), "wildcard of the slot type applies")
	require.False(t, page.AllowsGrandchildNodeType("missing", text))

	require.True(t, r.IsNodeTypeAllowedAsChildToTetheredNode("Acme:Page", "main", "Acme:Text"))
	require.False(t, r.IsNodeTypeAllowedAsChildToTetheredNode("Acme:Page", "main", "Acme:Unknown"))
}

func TestManager_LazyLoadAndReload(t *testing.T) {
	calls := 0
	configs := []string{`'Acme:A': {}`, `'Acme:B': {superTypes: {'Acme:Missing': true}}`, `'Acme:C': {}`}
	m := nodetype.NewManager(nodetype.ProviderFunc(func() (*nodetype.Tree, error) {
		yml := configs[calls]
		calls++
		return nodetype.ParseYAML([]byte(yml))
	}))
	require.Equal(t, 0, calls, "loading is deferred")

	r1, err := m.Registry()
	require.NoError(t, err)
	require.True(t, r1.Has("Acme:A"))

	r2, err := m.Registry()
	require.NoError(t, err)
	require.Same(t, r1, r2)
	require.Equal(t, 1, calls)

	_, err = m.Reload()
	require.Error(t, err)
	current, err := m.Registry()
	require.NoError(t, err)
	require.Same(t, r1, current, "failed reload keeps the previous snapshot")

	r3, err := m.Reload()
	require.NoError(t, err)
	require.True(t, r3.Has("Acme:C"))
	require.False(t, r3.Has("Acme:A"), "reload replaces the whole registry")
}

func TestIsOfType_TransitiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "types")
		supers := make([][]int, n)
		configs := nodetype.NewTree()
		for i := 0; i < n; i++ {
			st := nodetype.NewTree()
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("super_%d_%d", i, j)) {
					st.Set(fmt.Sprintf("T%d", j), true)
					supers[i] = append(supers[i], j)
				}
			}
			cfg := nodetype.NewTree()
			cfg.Set("superTypes", st)
			configs.Set(fmt.Sprintf("T%d", i), cfg)
		}
		r, err := nodetype.NewRegistry(configs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reach := make([]map[int]bool, n)
		for i := 0; i < n; i++ {
			reach[i] = map[int]bool{i: true}
			for _, s := range supers[i] {
				for a := range reach[s] {
					reach[i][a] = true
				}
			}
		}
		for i := 0; i < n; i++ {
			ti, _ := r.Get(nodetype.Name(fmt.Sprintf("T%d", i)))
			for j := 0; j < n; j++ {
				want := reach[i][j]
				if got := ti.IsOfType(nodetype.Name(fmt.Sprintf("T%d", j))); got != want {
					t.Fatalf("T%d isOfType T%d = %v, want %v", i, j, got, want)
				}
			}
		}
	})
}
