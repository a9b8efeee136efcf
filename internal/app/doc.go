// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the startup sequence that turns discovered
// custom logic into served routes, decoupled from any specific entrypoint
// like a CLI.
package app
