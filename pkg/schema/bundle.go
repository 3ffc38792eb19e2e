package schema

import (
	"embed"
	"fmt"
	"path"
	"slices"

	"github.com/paramtree/paramtree-go/pkg/model"
)

//go:embed models/*.yaml
var modelFS embed.FS

// bundles maps a bundle name to the model files it is built from, in
// load order.
var bundles = map[string][]string{
	"tr181": {"tr181-device.yaml", "tr143-diagnostics.yaml"},
	"tr135": {"tr135-stbservice.yaml"},
	"tr196": {"tr196-fapservice.yaml"},
}

// Bundles returns the names of the bundled data models.
func Bundles() []string {
	names := make([]string, 0, len(bundles))
	for name := range bundles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadBundle builds a bundled data model. Each call returns a fresh
// definition.
func LoadBundle(name string) (*model.ObjectDef, error) {
	models, err := BundleModels(name)
	if err != nil {
		return nil, err
	}
	return Build(models...)
}

// BundleModels returns the parsed model files of a bundle.
func BundleModels(name string) ([]*RawModel, error) {
	files, ok := bundles[name]
	if !ok {
		return nil, fmt.Errorf("unknown bundle %q (have %v)", name, Bundles())
	}
	models := make([]*RawModel, 0, len(files))
	for _, f := range files {
		data, err := modelFS.ReadFile(path.Join("models", f))
		if err != nil {
			return nil, fmt.Errorf("reading bundled %s: %w", f, err)
		}
		m, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		models = append(models, m)
	}
	return models, nil
}
