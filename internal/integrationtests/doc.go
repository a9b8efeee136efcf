// Package integrationtests exercises a complete logicrouter server over real
// HTTP, from discovery through to serialized responses.
package integrationtests
