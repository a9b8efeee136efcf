// Package script turns discovered script files into registry handlers.
//
// Each supported language has a Runtime. Go scripts are interpreted with
// yaegi; Lua scripts run on gopher-lua. Whatever the language, a script must
// yield exactly one entry point:
//
//   - an explicit export wins: a Lua chunk that returns a function, or a
//     function whose name matches the definition name (case and '_'/'-'
//     insensitive, so before_save serves /beforeSave);
//   - otherwise the single callable the script defines is used;
//   - zero or several candidates fail with a *ResolutionError.
//
// Unexported Go identifiers and Lua globals prefixed with "__" are never
// candidates.
//
// Handlers receive the decoded JSON body. Numbers reach scripts as float64,
// so integers beyond 2^53 lose precision on the way through a script.
//
// In Lua, JSON null is the global null, a truthy sentinel that compares
// equal only to itself; returning nil also yields null. Arrays from the
// request keep a shared metatable so they stay arrays, even when empty.
// Tables a script builds itself become arrays when their keys are exactly
// 1..n and objects otherwise. Lua states open only the base, table, string
// and math libraries, without dofile, loadfile or require.
package script
