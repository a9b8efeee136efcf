// Package hcl reads the HCL settings file of the router. Expressions in the
// file are evaluated with a small function library, most notably env(), so
// deployment specific values can come from the environment.
package hcl
