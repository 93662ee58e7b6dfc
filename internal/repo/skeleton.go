package repo

import "github.com/okvist/manifold/internal/document"

// Collection names with purpose-built skeletons.
const (
	KindManifests = "manifests"
	KindPkgsinfo  = "pkgsinfo"
)

// manifestSections are the list-valued fields every new manifest starts with.
var manifestSections = []string{
	"catalogs",
	"included_manifests",
	"managed_installs",
	"managed_uninstalls",
	"managed_updates",
	"optional_installs",
}

// skeleton returns the default document for a newly created record of the
// given kind. Kinds without a purpose-built skeleton start empty.
func skeleton(kind string) *document.Document {
	m := document.NewMapping()
	switch kind {
	case KindManifests:
		for _, section := range manifestSections {
			m.Set(section, document.NewSequence())
		}
	case KindPkgsinfo:
		m.Set("name", document.NewString("ProductName"))
		m.Set("display_name", document.NewString("Display Name"))
		m.Set("description", document.NewString("Product description"))
		m.Set("version", document.NewString("1.0"))
		m.Set("catalogs", document.NewSequence(document.NewString("development")))
	}
	return m
}
