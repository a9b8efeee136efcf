package script

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

const (
	nullRegistryKey  = "logicrouter.json.null"
	arrayRegistryKey = "logicrouter.json.array"
)

// jsonMarkers are the per-state values that keep a JSON shape Lua cannot
// express natively: null and arrays, including empty ones.
type jsonMarkers struct {
	null  *lua.LUserData
	array *lua.LTable
}

// markersOf returns the markers of L, installing them in the registry on
// first use.
func markersOf(L *lua.LState) jsonMarkers {
	reg := L.G.Registry
	null, ok := reg.RawGetString(nullRegistryKey).(*lua.LUserData)
	if !ok {
		null = L.NewUserData()
		meta := L.NewTable()
		meta.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LString("null"))
			return 1
		}))
		null.Metatable = meta
		reg.RawSetString(nullRegistryKey, null)
	}
	array, ok := reg.RawGetString(arrayRegistryKey).(*lua.LTable)
	if !ok {
		array = L.NewTable()
		reg.RawSetString(arrayRegistryKey, array)
	}
	return jsonMarkers{null: null, array: array}
}

// toLua converts a decoded JSON value into a Lua value. null becomes the
// null sentinel and arrays carry the array metatable, so both survive the
// way back through fromLua.
func toLua(L *lua.LState, v any) (lua.LValue, error) {
	switch v := v.(type) {
	case nil:
		return markersOf(L).null, nil
	case bool:
		return lua.LBool(v), nil
	case string:
		return lua.LString(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, errors.Wrapf(err, "number %s", v)
		}
		return lua.LNumber(f), nil
	case float64:
		return lua.LNumber(v), nil
	case []any:
		tbl := L.CreateTable(len(v), 0)
		for _, item := range v {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			tbl.Append(lv)
		}
		tbl.Metatable = markersOf(L).array
		return tbl, nil
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			tbl.RawSetString(key, lv)
		}
		return tbl, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint()), nil
	case reflect.Float32:
		return lua.LNumber(rv.Float()), nil
	}

	// Anything else is brought back to its generic JSON shape first.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot convert %T", v)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrapf(err, "cannot convert %T", v)
	}
	return toLua(L, generic)
}

// fromLua converts a Lua value into a JSON-encodable Go value. Both nil and
// the null sentinel become null. A table with the array metatable is an
// array. Any other table whose keys are exactly 1..n becomes an array, every
// other table an object; an empty unmarked table is an empty object.
func fromLua(L *lua.LState, v lua.LValue) (any, error) {
	markers := markersOf(L)
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LUserData:
		if v == markers.null {
			return nil, nil
		}
	case lua.LBool:
		return bool(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Errorf("number %v is not representable in JSON", f)
		}
		return f, nil
	case *lua.LTable:
		return tableFromLua(L, v, v.Metatable == markers.array)
	}
	return nil, errors.Errorf("value of type %s is not representable in JSON", v.Type())
}

func tableFromLua(L *lua.LState, t *lua.LTable, isArray bool) (any, error) {
	n := t.MaxN()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if isArray && n != count {
		return nil, errors.Errorf("array has %d entries but only %d are in sequence", count, n)
	}
	if isArray || (n > 0 && n == count) {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			item, err := fromLua(L, t.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	}

	obj := make(map[string]any, count)
	var convErr error
	t.ForEach(func(k, item lua.LValue) {
		if convErr != nil {
			return
		}
		var key string
		switch k := k.(type) {
		case lua.LString:
			key = string(k)
		case lua.LNumber:
			key = k.String()
		default:
			convErr = errors.Errorf("table key of type %s is not representable in JSON", k.Type())
			return
		}
		val, err := fromLua(L, item)
		if err != nil {
			convErr = errors.Wrap(err, fmt.Sprintf("key %q", key))
			return
		}
		obj[key] = val
	})
	if convErr != nil {
		return nil, convErr
	}
	return obj, nil
}
