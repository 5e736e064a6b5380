package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
)

// GeneratorMap is the legacy entry mapping a generator ID to its public
// generator blob.
type GeneratorMap struct {
	Generator []byte
}

// Type returns the ledger entry type for GeneratorMap.
func (g *GeneratorMap) Type() entry.Type {
	return entry.TypeGeneratorMap
}

// MarshalBinary renders the entry in its canonical form.
func (g *GeneratorMap) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeGeneratorMap)
	w.vl(g.Generator)
	return w.bytes(), nil
}

func readGeneratorMap(r *reader) (Entry, error) {
	g := &GeneratorMap{Generator: r.vl()}
	return g, r.err
}
