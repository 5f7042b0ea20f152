package transform

import (
	"errors"
	"testing"

	"catalog-crawler/internal/catalog"
)

func TestEngineMemoizesFieldComputations(t *testing.T) {
	t.Parallel()

	baseCalls := 0
	reg, err := NewRegistry(catalog.KindStore, []FieldSpec{
		{Name: "base", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			baseCalls++
			return rec.String("name"), nil
		}},
		{Name: "left", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			return fields.Field("base")
		}},
		{Name: "right", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			return fields.Field("base")
		}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	engine, err := NewEngine(reg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	entity, err := engine.Normalize(catalog.KindStore, "1", catalog.RawRecord{"name": "x"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if baseCalls != 1 {
		t.Fatalf("base computed %d times, want exactly once", baseCalls)
	}
	if entity["base"] != "x" || entity["left"] != "x" || entity["right"] != "x" {
		t.Fatalf("unexpected entity: %+v", entity)
	}
}

func TestEngineDetectsDependencyCycle(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(catalog.KindStore, []FieldSpec{
		{Name: "a", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			return fields.Field("b")
		}},
		{Name: "b", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			return fields.Field("a")
		}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	engine, err := NewEngine(reg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	_, err = engine.Normalize(catalog.KindStore, "1", catalog.RawRecord{})
	if !errors.Is(err, ErrFieldCycle) {
		t.Fatalf("Normalize() error = %v, want ErrFieldCycle", err)
	}
}

func TestEngineWrapsComputationFailures(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(catalog.KindProduct, []FieldSpec{
		{Name: "name", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			if !rec.Has("name") {
				return nil, errors.New("missing required value \"name\"")
			}
			return rec.String("name"), nil
		}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	engine, err := NewEngine(reg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	_, err = engine.Normalize(catalog.KindProduct, "42", catalog.RawRecord{})
	var fieldErr *catalog.FieldComputationError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("Normalize() error = %v, want FieldComputationError", err)
	}
	if fieldErr.Field != "name" || fieldErr.EntityID != "42" {
		t.Fatalf("error identifies %q/%q, want name/42", fieldErr.Field, fieldErr.EntityID)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	noop := func(_ catalog.RawRecord, _ *Resolution) (any, error) { return nil, nil }
	_, err := NewRegistry(catalog.KindStore, []FieldSpec{
		{Name: "a", Compute: noop},
		{Name: "a", Compute: noop},
	})
	if err == nil {
		t.Fatal("expected duplicate field name error")
	}
}

func TestResolutionUnknownField(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(catalog.KindStore, []FieldSpec{
		{Name: "a", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			return fields.Field("nope")
		}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	engine, err := NewEngine(reg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	_, err = engine.Normalize(catalog.KindStore, "1", catalog.RawRecord{})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Normalize() error = %v, want ErrUnknownField", err)
	}
}
