package driver

import (
	"context"
	"fmt"

	"github.com/Tom-Deng/rally/internal/esclient"
)

// TypeMapping is one named mapping contributed to an index's combined
// "mappings" body (spec.md §4.G): legacy multi-type indices declare
// one TypeMapping per type, merged by name into a single map.
type TypeMapping struct {
	Name    string
	Mapping interface{}
}

// IndexDefinition is one index a race wants to exist before its tasks
// run (spec.md §4.G): a name, its index settings, the mappings of
// every type it declares, and whether the race manages its lifecycle
// or assumes it is already present.
type IndexDefinition struct {
	Name        string
	AutoManaged bool // when false, IndexSetup is a no-op for this index
	Settings    map[string]interface{}
	Types       []TypeMapping
}

// mergeMappings folds types into a single name -> mapping map, the
// shape expected by the cluster's indices.create "mappings" body. A
// later entry with the same name overwrites an earlier one.
func mergeMappings(types []TypeMapping) map[string]interface{} {
	merged := make(map[string]interface{}, len(types))
	for _, t := range types {
		merged[t.Name] = t.Mapping
	}
	return merged
}

// IndexSetup prepares indices before a race's first join point
// (spec.md §4.G). For an auto-managed index it deletes any existing
// index of the same name, then creates it with the definition's
// settings and merged mappings, so every race run starts from a
// known-empty index. For a non-auto-managed index it does nothing at
// all — not even a call to check whether the index exists — since
// rerunning a race against infrastructure the operator manages by hand
// must leave it completely untouched.
type IndexSetup struct {
	Client esclient.Client
}

// NewIndexSetup returns an IndexSetup backed by client.
func NewIndexSetup(client esclient.Client) *IndexSetup {
	return &IndexSetup{Client: client}
}

// Prepare ensures every definition in defs exists as specified,
// stopping at the first error.
func (i *IndexSetup) Prepare(ctx context.Context, defs []IndexDefinition) error {
	for _, def := range defs {
		if err := i.prepareOne(ctx, def); err != nil {
			return fmt.Errorf("preparing index %q: %w", def.Name, err)
		}
	}
	return nil
}

func (i *IndexSetup) prepareOne(ctx context.Context, def IndexDefinition) error {
	if !def.AutoManaged {
		return nil
	}

	exists, err := i.Client.IndicesExists(ctx, def.Name)
	if err != nil {
		return err
	}

	if exists {
		if err := i.Client.IndicesDelete(ctx, def.Name); err != nil {
			return err
		}
	}

	body := map[string]interface{}{
		"settings": def.Settings,
		"mappings": mergeMappings(def.Types),
	}
	return i.Client.IndicesCreate(ctx, def.Name, body)
}
