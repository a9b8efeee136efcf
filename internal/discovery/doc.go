// Package discovery enumerates the logic definitions the router serves.
//
// Two mutually exclusive sources exist. A DirectoryLoader lists script files
// in one directory. A ManifestLoader reads a customLogic manifest, writes the
// inline code it carries to well-known files, and hands those files on as
// definitions. Both run once, before any route is registered, and fail with
// an *Error when their source cannot be read.
package discovery
