// Package config defines the format-agnostic model of the custom logic the
// router serves, along with the Loader interface that discovery sources
// implement.
//
// A LogicDefinition is the single currency between discovery, handler
// resolution and routing. Concrete loaders (directory scan, manifest) live in
// the discovery package; this package only describes what they produce.
package config
