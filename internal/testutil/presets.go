package testutil

import "github.com/zjrosen/contentgraph/internal/model"

// Standard content ids.
const (
	Sites model.NodeAggregateID = "sites"
	Home  model.NodeAggregateID = "home"
	About model.NodeAggregateID = "about"
	Intro model.NodeAggregateID = "intro"
)

// WithStandardContent adds the standard content tree:
//
//	sites (Acme:Sites)
//	└── home (Acme:Page, named "home")
//	    ├── main (tethered)
//	    │   └── intro (Acme:Text)
//	    └── about (Acme:Page)
func (b *Builder) WithStandardContent() *Builder {
	return b.
		WithRoot(Sites, "Acme:Sites").
		WithNode(Home, Sites, Name("home"), Properties(model.PropertyValues{"title": "Home"})).
		WithNode(Intro, model.TetheredNodeAggregateID(Home, "main"),
			Type("Acme:Text"), Properties(model.PropertyValues{"text": "Welcome"})).
		WithNode(About, Home, Properties(model.PropertyValues{"title": "About"}))
}
