package config

import (
	"path/filepath"
	"strings"
)

// Trigger is the lifecycle event a unit of custom logic responds to.
type Trigger string

const (
	TriggerBeforeSave   Trigger = "beforeSave"
	TriggerAfterSave    Trigger = "afterSave"
	TriggerBeforeCreate Trigger = "beforeCreate"
	TriggerAfterCreate  Trigger = "afterCreate"
)

var AllTrigger = []Trigger{
	TriggerBeforeSave,
	TriggerAfterSave,
	TriggerBeforeCreate,
	TriggerAfterCreate,
}

// IsKnown reports whether t is one of the predefined lifecycle triggers.
// Directory-scan mode also accepts arbitrary trigger names.
func (t Trigger) IsKnown() bool {
	switch t {
	case TriggerBeforeSave, TriggerAfterSave, TriggerBeforeCreate, TriggerAfterCreate:
		return true
	}
	return false
}

func (t Trigger) String() string {
	return string(t)
}

// TriggerFor maps a definition name onto a trigger. Known names are matched
// case-insensitively so that "beforecreate.lua"-style file names keep their
// meaning; anything else becomes a custom trigger carrying the name itself.
func TriggerFor(name string) Trigger {
	for _, t := range AllTrigger {
		if strings.EqualFold(name, t.String()) {
			return t
		}
	}
	return Trigger(name)
}

// SourceKind identifies where a definition came from.
type SourceKind string

const (
	SourceDirectory SourceKind = "directory"
	SourceManifest  SourceKind = "manifest"
	SourceBuiltin   SourceKind = "builtin"
)

// Language is the runtime a script is written for.
type Language string

const (
	LanguageGo  Language = "go"
	LanguageLua Language = "lua"
)

var AllLanguage = []Language{LanguageGo, LanguageLua}

// Extension returns the file extension, including the dot, used for scripts
// written in l.
func (l Language) Extension() string {
	return "." + string(l)
}

// IsValid reports whether l names a supported runtime.
func (l Language) IsValid() bool {
	switch l {
	case LanguageGo, LanguageLua:
		return true
	}
	return false
}

// LanguageForExtension maps a file extension (with or without the leading dot)
// to its language.
func LanguageForExtension(ext string) (Language, bool) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, l := range AllLanguage {
		if string(l) == ext {
			return l, true
		}
	}
	return "", false
}

// ScriptExtensions lists every extension recognized in directory-scan mode.
func ScriptExtensions() []string {
	exts := make([]string, 0, len(AllLanguage))
	for _, l := range AllLanguage {
		exts = append(exts, l.Extension())
	}
	return exts
}

// LogicDefinition identifies one unit of custom behavior exposed as a route.
type LogicDefinition struct {
	// Name is the route path segment and the handler identity.
	Name string
	// Source is the path of the script file backing the definition.
	Source   string
	Trigger  Trigger
	Language Language
	Origin   SourceKind
}

// RoutePath returns the HTTP path the definition is served on.
func (d *LogicDefinition) RoutePath() string {
	return "/" + d.Name
}

// NewFileDefinition builds a definition for a script file. The name is the
// file name without its extension.
func NewFileDefinition(path string, lang Language, origin SourceKind) *LogicDefinition {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return &LogicDefinition{
		Name:     name,
		Source:   path,
		Trigger:  TriggerFor(name),
		Language: lang,
		Origin:   origin,
	}
}
