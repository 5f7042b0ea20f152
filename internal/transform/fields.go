package transform

import (
	"fmt"
	"strings"

	"catalog-crawler/internal/catalog"
	"catalog-crawler/internal/normalize"
)

// weekdays in raw-key order; each contributes an _open and a _close field
// holding optional minutes-since-midnight values.
var weekdays = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// storeFeatureFlags pairs boolean entity fields with the raw code keys
// whose sentinel "Y" value sets them, in declaration order.
var storeFeatureFlags = []struct {
	field   string
	codeKey string
}{
	{"has_wheelchair_access", "wheelchair_access_code"},
	{"has_bilingual_services", "bilingual_services_code"},
	{"has_tasting_bar", "tasting_bar_code"},
	{"has_transit_access", "transit_access_code"},
}

// StoreRegistry declares the normalized fields of a retail location.
func StoreRegistry() (*Registry, error) {
	specs := []FieldSpec{
		{Name: "id", Compute: requiredString("id")},
		{Name: "name", Compute: titleCased("name")},
		{Name: "address_line_1", Compute: titleCased("address_line_1")},
		{Name: "address_line_2", Compute: optionalTitleCased("address_line_2")},
		{Name: "city", Compute: titleCased("city")},
		{Name: "postal_code", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return normalize.PostalCode(rec.String("postal_code")), nil
		}},
		{Name: "telephone", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return normalize.Phone(rec.String("phone_area_code"), rec.String("phone_number")), nil
		}},
		{Name: "latitude", Compute: optionalFloat("latitude")},
		{Name: "longitude", Compute: optionalFloat("longitude")},
		{Name: "parking_spaces", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return rec.Int("parking_spaces"), nil
		}},
		{Name: "has_parking", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return rec.Int("parking_spaces") > 0, nil
		}},
		// tags references the already-normalized fields, not the raw values,
		// so search tokens match what is stored.
		{Name: "tags", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			name, err := fields.String("name")
			if err != nil {
				return nil, err
			}
			addr1, err := fields.String("address_line_1")
			if err != nil {
				return nil, err
			}
			addr2, err := fields.String("address_line_2")
			if err != nil {
				return nil, err
			}
			city, err := fields.String("city")
			if err != nil {
				return nil, err
			}
			postal, err := fields.String("postal_code")
			if err != nil {
				return nil, err
			}
			return strings.Join(normalize.Tags(name, addr1, addr2, city, postal), " "), nil
		}},
	}

	for _, flag := range storeFeatureFlags {
		specs = append(specs, FieldSpec{Name: flag.field, Compute: yesFlag(flag.codeKey)})
	}
	for _, day := range weekdays {
		specs = append(specs,
			FieldSpec{Name: day + "_open", Compute: optionalMinutes(day + "_open")},
			FieldSpec{Name: day + "_close", Compute: optionalMinutes(day + "_close")},
		)
	}

	return NewRegistry(catalog.KindStore, specs)
}

// ProductRegistry declares the normalized fields of a catalog product.
// Inventory aggregate keys are injected onto the raw record by the
// orchestrator's enrichment step before normalization.
func ProductRegistry() (*Registry, error) {
	specs := []FieldSpec{
		{Name: "id", Compute: requiredString("id")},
		{Name: "name", Compute: titleCased("name")},
		{Name: "producer_name", Compute: optionalTitleCased("producer_name")},
		{Name: "origin", Compute: optionalTitleCased("origin")},
		{Name: "price_in_cents", Compute: requiredInt("price_in_cents")},
		{Name: "volume_in_milliliters", Compute: requiredInt("volume_in_milliliters")},
		{Name: "price_per_liter_in_cents", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			price, err := fields.Field("price_in_cents")
			if err != nil {
				return nil, err
			}
			volume, err := fields.Field("volume_in_milliliters")
			if err != nil {
				return nil, err
			}
			ml := volume.(int64)
			if ml == 0 {
				return nil, nil
			}
			return price.(int64) * 1000 / ml, nil
		}},
		{Name: "is_discontinued", Compute: yesFlag("discontinued_code")},
		{Name: "inventory_count", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return rec.Int("inventory_count"), nil
		}},
		{Name: "inventory_value_in_cents", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return rec.Int("inventory_value_in_cents"), nil
		}},
		{Name: "inventory_volume_in_milliliters", Compute: func(rec catalog.RawRecord, _ *Resolution) (any, error) {
			return rec.Int("inventory_volume_in_milliliters"), nil
		}},
		{Name: "tags", Compute: func(_ catalog.RawRecord, fields *Resolution) (any, error) {
			name, err := fields.String("name")
			if err != nil {
				return nil, err
			}
			producer, err := fields.String("producer_name")
			if err != nil {
				return nil, err
			}
			origin, err := fields.String("origin")
			if err != nil {
				return nil, err
			}
			return strings.Join(normalize.Tags(name, producer, origin), " "), nil
		}},
	}

	return NewRegistry(catalog.KindProduct, specs)
}

// NewCatalogEngine builds the engine over both startup registries.
func NewCatalogEngine() (*Engine, error) {
	stores, err := StoreRegistry()
	if err != nil {
		return nil, fmt.Errorf("store registry: %w", err)
	}
	products, err := ProductRegistry()
	if err != nil {
		return nil, fmt.Errorf("product registry: %w", err)
	}
	return NewEngine(stores, products)
}

func requiredString(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		if !rec.Has(key) {
			return nil, fmt.Errorf("missing required value %q", key)
		}
		s := rec.String(key)
		if s == "" {
			return nil, fmt.Errorf("empty required value %q", key)
		}
		return s, nil
	}
}

func requiredInt(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		if !rec.Has(key) {
			return nil, fmt.Errorf("missing required value %q", key)
		}
		return rec.Int(key), nil
	}
}

func titleCased(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		if !rec.Has(key) {
			return nil, fmt.Errorf("missing required value %q", key)
		}
		return normalize.TitleCase(rec.String(key)), nil
	}
}

func optionalTitleCased(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		if !rec.Has(key) {
			return nil, nil
		}
		return normalize.TitleCase(rec.String(key)), nil
	}
}

func optionalFloat(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		if !rec.Has(key) {
			return nil, nil
		}
		return rec.Float(key), nil
	}
}

func yesFlag(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		return normalize.FlagFromCode(rec.String(key)), nil
	}
}

// optionalMinutes accepts either integer minutes-since-midnight or a clock
// string ("9:30 AM") and resolves absent values to nil.
func optionalMinutes(key string) FieldFunc {
	return func(rec catalog.RawRecord, _ *Resolution) (any, error) {
		value := rec.Lookup(key)
		if value == nil {
			return nil, nil
		}
		if s, ok := value.(string); ok {
			minutes, err := normalize.MinutesSinceMidnight(s)
			if err != nil {
				return nil, err
			}
			return int64(minutes), nil
		}
		return rec.Int(key), nil
	}
}
