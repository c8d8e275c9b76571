package migration

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
)

type fakeCatalog struct {
	entities map[string]catalog.Entity
	getErrs  map[string]error
	patches  map[string]catalog.Patch
}

func newFakeCatalog(entities map[string]catalog.Entity) *fakeCatalog {
	return &fakeCatalog{
		entities: entities,
		getErrs:  make(map[string]error),
		patches:  make(map[string]catalog.Patch),
	}
}

func (f *fakeCatalog) ListEntities(_ context.Context, _ string) ([]catalog.Entity, error) {
	out := make([]catalog.Entity, 0, len(f.entities))
	for identifier := range f.entities {
		out = append(out, catalog.Entity{Identifier: identifier})
	}
	return out, nil
}

func (f *fakeCatalog) GetEntity(_ context.Context, _, identifier string) (*catalog.Entity, error) {
	if err := f.getErrs[identifier]; err != nil {
		return nil, err
	}
	entity, ok := f.entities[identifier]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &entity, nil
}

func (f *fakeCatalog) UpdateEntity(_ context.Context, _, identifier string, patch catalog.Patch) error {
	f.patches[identifier] = patch
	return nil
}

func TestMigrateCopiesRelationToProperty(t *testing.T) {
	fcat := newFakeCatalog(map[string]catalog.Entity{
		"api": {
			Identifier: "api",
			Relations:  map[string]interface{}{"team": []interface{}{"team-alpha", "team-beta"}},
		},
		"web": {
			Identifier: "web",
			Relations:  map[string]interface{}{"team": "team-alpha"},
		},
		"orphan": {
			Identifier: "orphan",
			Relations:  map[string]interface{}{},
		},
	})

	m := New(fcat, "team", "team")
	if err := m.Run(context.Background(), "service"); err != nil {
		t.Fatalf("error running migration, %v", err)
	}

	want := map[string]interface{}{"team": []string{"team-alpha", "team-beta"}}
	if !reflect.DeepEqual(fcat.patches["api"].Properties, want) {
		t.Fatalf("unexpected api patch %+v", fcat.patches["api"])
	}

	// a scalar relation value migrates as a one-element list
	wantWeb := map[string]interface{}{"team": []string{"team-alpha"}}
	if !reflect.DeepEqual(fcat.patches["web"].Properties, wantWeb) {
		t.Fatalf("unexpected web patch %+v", fcat.patches["web"])
	}

	if _, ok := fcat.patches["orphan"]; ok {
		t.Fatal("entity without a team relation must be skipped")
	}
}

func TestMigrateBrokenEntityDoesNotStopRun(t *testing.T) {
	fcat := newFakeCatalog(map[string]catalog.Entity{
		"broken": {Identifier: "broken"},
		"ok": {
			Identifier: "ok",
			Relations:  map[string]interface{}{"team": "team-alpha"},
		},
	})
	fcat.getErrs["broken"] = errors.New("catalog hiccup")

	m := New(fcat, "team", "team")
	if err := m.Run(context.Background(), "service"); err != nil {
		t.Fatalf("one broken entity must not fail the migration, %v", err)
	}

	if _, ok := fcat.patches["ok"]; !ok {
		t.Fatal("healthy entity should still be migrated")
	}
}
