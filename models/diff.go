package models

import (
	"fmt"
	"reflect"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// Structural diffing for snapshots and amendments. Paths are built from db
// column names, with collection rows addressed by their stable id, e.g.
// result_links[<id>].lower_results[<id>].activities[<id>].items[<id>].unit_price

// columns never included in a diff
var diffSkipColumns = map[string]struct{}{
	"id":         {},
	"country_id": {},
	"origin_id":  {},
	"created_at": {},
	"updated_at": {},
}

// diffScalars compares the db-tagged scalar fields of two instances of the
// same struct type and reports changed columns under the given path prefix.
func diffScalars(prefix string, oldModel, newModel any) []api.FieldChange {
	oldVal := reflect.Indirect(reflect.ValueOf(oldModel))
	newVal := reflect.Indirect(reflect.ValueOf(newModel))
	if oldVal.Type() != newVal.Type() {
		panic("diffScalars called with mismatched types " +
			oldVal.Type().String() + " and " + newVal.Type().String())
	}

	var changes []api.FieldChange
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		column := field.Tag.Get("db")
		if column == "" || column == "-" {
			continue
		}
		if _, skip := diffSkipColumns[column]; skip {
			continue
		}

		oldStr := formatFieldValue(oldVal.Field(i))
		newStr := formatFieldValue(newVal.Field(i))
		if oldStr == newStr {
			continue
		}

		path := column
		if prefix != "" {
			path = prefix + "." + column
		}
		changes = append(changes, api.FieldChange{Path: path, Old: oldStr, New: newStr})
	}
	return changes
}

// diffPath builds the path segment for one row of a collection
func diffPath(prefix, collection string, id uuid.UUID) string {
	segment := fmt.Sprintf("%s[%s]", collection, id)
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// rowAdded reports every db-tagged column of a new row as a change from empty
func rowAdded(prefix string, newModel any) []api.FieldChange {
	zero := reflect.New(reflect.Indirect(reflect.ValueOf(newModel)).Type()).Interface()
	return diffScalars(prefix, zero, newModel)
}

// rowRemoved reports every db-tagged column of a removed row as a change to empty
func rowRemoved(prefix string, oldModel any) []api.FieldChange {
	zero := reflect.New(reflect.Indirect(reflect.ValueOf(oldModel)).Type()).Interface()
	return diffScalars(prefix, oldModel, zero)
}

func formatFieldValue(v reflect.Value) string {
	switch value := v.Interface().(type) {
	case decimal.Decimal:
		return value.StringFixed(domain.MoneyPrecision)
	case nulls.Time:
		if !value.Valid {
			return ""
		}
		return value.Time.Format(domain.DateFormat)
	case nulls.UUID:
		if !value.Valid {
			return ""
		}
		return value.UUID.String()
	case nulls.String:
		if !value.Valid {
			return ""
		}
		return value.String
	case nulls.Int:
		if !value.Valid {
			return ""
		}
		return fmt.Sprintf("%d", value.Int)
	case uuid.UUID:
		if value == uuid.Nil {
			return ""
		}
		return value.String()
	case time.Time:
		if value.IsZero() {
			return ""
		}
		return value.Format(domain.DateFormat)
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", value)
	}
}
