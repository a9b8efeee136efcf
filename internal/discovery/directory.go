package discovery

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/fsutil"
)

// DirectoryLoader discovers one definition per script file in a directory.
type DirectoryLoader struct {
	Path string
}

// NewDirectoryLoader creates a loader scanning path.
func NewDirectoryLoader(path string) *DirectoryLoader {
	return &DirectoryLoader{Path: path}
}

// Kind implements config.Loader.
func (l *DirectoryLoader) Kind() config.SourceKind {
	return config.SourceDirectory
}

// Load implements config.Loader. Only files with a recognized script
// extension are kept; the definition name is the file name without it.
func (l *DirectoryLoader) Load(ctx context.Context) ([]*config.LogicDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scanning custom logic directory...", "path", l.Path)

	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, l.fail(err)
	}
	if !info.IsDir() {
		return nil, l.fail(errors.New("not a directory"))
	}

	files, err := fsutil.FindFilesByExtension(l.Path, config.ScriptExtensions()...)
	if err != nil {
		return nil, l.fail(err)
	}
	if len(files) == 0 {
		logger.Warn("No custom logic scripts found in directory", "path", l.Path, "extensions", config.ScriptExtensions())
		return nil, nil
	}

	defs := make([]*config.LogicDefinition, 0, len(files))
	for _, file := range files {
		lang, _ := config.LanguageForExtension(filepath.Ext(file))
		def := config.NewFileDefinition(file, lang, config.SourceDirectory)
		logger.Debug("Discovered custom logic script.", "name", def.Name, "file", file, "language", lang)
		defs = append(defs, def)
	}

	logger.Info("Custom logic directory scanned.", "path", l.Path, "definitions", len(defs))
	return defs, nil
}

func (l *DirectoryLoader) fail(err error) error {
	return &Error{Kind: config.SourceDirectory, Source: l.Path, Err: err}
}
