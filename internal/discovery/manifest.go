package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// OperationType is the API operation a manifest entry attaches logic to.
type OperationType string

const (
	OperationTypeCreate OperationType = "CREATE"
	OperationTypeRead   OperationType = "READ"
	OperationTypeList   OperationType = "LIST"
	OperationTypeUpdate OperationType = "UPDATE"
	OperationTypeDelete OperationType = "DELETE"
)

func (e OperationType) String() string {
	return string(e)
}

// Entry is one element of a customLogic manifest.
type Entry struct {
	APIID         string          `json:"apiID,omitempty" yaml:"apiID,omitempty"`
	OperationType OperationType   `json:"operationType" yaml:"operationType"`
	BeforeSave    *string         `json:"beforeSave" yaml:"beforeSave"`
	AfterSave     *string         `json:"afterSave" yaml:"afterSave"`
	Language      config.Language `json:"language,omitempty" yaml:"language,omitempty"`
}

// Materialization is a code payload that will be written to disk and served.
type Materialization struct {
	Trigger  config.Trigger
	Language config.Language
	Code     string
}

// FileName is the fixed, well-known file name the payload is written to.
func (m Materialization) FileName() string {
	return m.Trigger.String() + m.Language.Extension()
}

// ReadManifest parses the manifest at path. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func ReadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read manifest")
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, errors.Wrap(err, "could not yaml decode manifest")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&entries); err != nil {
			return nil, errors.Wrap(err, "could not json decode manifest")
		}
		if dec.More() {
			return nil, errors.New("could not json decode manifest: trailing data after array")
		}
	}

	for i, entry := range entries {
		if entry.Language != "" && !entry.Language.IsValid() {
			return nil, errors.Errorf("entry %d: unsupported language %q", i, entry.Language)
		}
	}
	return entries, nil
}

// Plan folds manifest entries into the payloads to materialize. Only CREATE
// entries contribute, empty payloads are ignored, and a later entry replaces
// an earlier one for the same trigger. The result is ordered beforeSave
// first, then afterSave.
func Plan(entries []Entry) []Materialization {
	latest := make(map[config.Trigger]Materialization)
	for _, entry := range entries {
		if entry.OperationType != OperationTypeCreate {
			continue
		}
		lang := entry.Language
		if lang == "" {
			lang = config.LanguageGo
		}
		if code, ok := payload(entry.BeforeSave); ok {
			latest[config.TriggerBeforeSave] = Materialization{Trigger: config.TriggerBeforeSave, Language: lang, Code: code}
		}
		if code, ok := payload(entry.AfterSave); ok {
			latest[config.TriggerAfterSave] = Materialization{Trigger: config.TriggerAfterSave, Language: lang, Code: code}
		}
	}

	var plan []Materialization
	for _, trigger := range []config.Trigger{config.TriggerBeforeSave, config.TriggerAfterSave} {
		if m, ok := latest[trigger]; ok {
			plan = append(plan, m)
		}
	}
	return plan
}

func payload(code *string) (string, bool) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return "", false
	}
	return *code, true
}

// ManifestLoader discovers definitions from a customLogic manifest.
type ManifestLoader struct {
	Path string
	// OutputDir receives the materialized code files.
	OutputDir string
}

// NewManifestLoader creates a loader for the manifest at path that writes
// generated code into outputDir.
func NewManifestLoader(path, outputDir string) *ManifestLoader {
	return &ManifestLoader{Path: path, OutputDir: outputDir}
}

// Kind implements config.Loader.
func (l *ManifestLoader) Kind() config.SourceKind {
	return config.SourceManifest
}

// Load implements config.Loader. All payloads are written before the first
// definition is returned, so no route can observe a half-written file.
func (l *ManifestLoader) Load(ctx context.Context) ([]*config.LogicDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Reading custom logic manifest...", "path", l.Path)

	entries, err := ReadManifest(l.Path)
	if err != nil {
		return nil, l.fail(err)
	}

	plan := Plan(entries)
	logger.Debug("Manifest parsed.", "entries", len(entries), "payloads", len(plan))
	if len(plan) == 0 {
		logger.Warn("Manifest contains no CREATE payloads", "path", l.Path)
		return nil, nil
	}

	defs := make([]*config.LogicDefinition, 0, len(plan))
	for _, m := range plan {
		target := filepath.Join(l.OutputDir, m.FileName())
		if err := fsutil.WriteTextFile(target, m.Code); err != nil {
			return nil, l.fail(err)
		}
		logger.Debug("Materialized custom logic.", "trigger", m.Trigger, "file", target)
		defs = append(defs, config.NewFileDefinition(target, m.Language, config.SourceManifest))
	}

	logger.Info("Custom logic manifest materialized.", "path", l.Path, "output_dir", l.OutputDir, "definitions", len(defs))
	return defs, nil
}

func (l *ManifestLoader) fail(err error) error {
	return &Error{Kind: config.SourceManifest, Source: l.Path, Err: err}
}
