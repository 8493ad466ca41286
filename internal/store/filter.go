package store

import "reflect"

// matches reports whether entry satisfies every filter, comparing each
// named field by value. Filters are applied by reflection because entries
// of arbitrary shape (association entries, ISL entries, ...) share this one
// table implementation.
func matches[T Entry](entry T, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}

	v := reflect.ValueOf(entry)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, f := range filters {
		fv := v.FieldByName(f.Field)
		if !fv.IsValid() {
			return false
		}
		if !reflect.DeepEqual(fv.Interface(), f.Value) {
			return false
		}
	}
	return true
}
