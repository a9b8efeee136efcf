// Package router builds the HTTP surface of the application: the fixed
// GET /ping and GET /metrics routes plus one POST /<name> route per bound
// handler.
//
// The route table is built once from a registry.Registry and never changes
// afterwards, so serving needs no locking.
package router
