// Package registry provides the central "glue" between discovered custom
// logic and the HTTP surface.
//
// The Registry maps route names to resolved handlers (HandlerRefs). It is
// populated exactly once at startup, from two directions: compiled-in
// modules call RegisterHandler through the Module interface, and script
// definitions found by discovery are bound with Bind after their runtime has
// resolved an entry point. Once the router is built the registry is only
// read, so it needs no locking.
package registry
