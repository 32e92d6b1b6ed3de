package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of registry data. Nodes, tools and prompts may
// live in one bundle file or in three separate files, each carrying only its
// own section.
type Document struct {
	Nodes   []NodeDefinition            `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Tools   []ToolDefinition            `json:"tools,omitempty" yaml:"tools,omitempty"`
	Prompts map[string]PromptDefinition `json:"prompts,omitempty" yaml:"prompts,omitempty"`
}

// Paths names the three registry documents.
type Paths struct {
	Nodes   string
	Tools   string
	Prompts string
}

// Candidate base names probed by LoadDir, in order.
var (
	nodeFiles   = []string{"nodes"}
	toolFiles   = []string{"tools"}
	promptFiles = []string{"prompts", "openai_config"}
	extensions  = []string{".json", ".yaml", ".yml"}
)

// LoadDir discovers nodes, tools and prompts documents in dir (json, yaml or
// yml) and builds a Registry from them.
func LoadDir(dir string, optFns ...func(o *Options)) (*Registry, error) {
	paths := Paths{
		Nodes:   probe(dir, nodeFiles),
		Tools:   probe(dir, toolFiles),
		Prompts: probe(dir, promptFiles),
	}
	if paths.Nodes == "" {
		return nil, fmt.Errorf("no nodes document found in %s", dir)
	}
	return Load(paths, optFns...)
}

// Load reads the three documents and builds a Registry. Empty paths are
// skipped.
func Load(paths Paths, optFns ...func(o *Options)) (*Registry, error) {
	var doc Document

	if paths.Nodes != "" {
		var nd Document
		if err := decodeFile(paths.Nodes, &nd); err != nil {
			return nil, err
		}
		doc.Nodes = nd.Nodes
	}

	if paths.Tools != "" {
		var td Document
		if err := decodeFile(paths.Tools, &td); err != nil {
			return nil, err
		}
		doc.Tools = td.Tools
	}

	if paths.Prompts != "" {
		prompts := map[string]PromptDefinition{}
		if err := decodeFile(paths.Prompts, &prompts); err != nil {
			return nil, err
		}
		doc.Prompts = prompts
	}

	return New(doc.Tools, doc.Nodes, doc.Prompts, optFns...)
}

// LoadFile reads a single bundle document carrying all three sections.
func LoadFile(path string, optFns ...func(o *Options)) (*Registry, error) {
	var doc Document
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	return New(doc.Tools, doc.Nodes, doc.Prompts, optFns...)
}

// LoadBytes parses a bundle document in the given format ("yaml" or "json").
func LoadBytes(data []byte, format string, optFns ...func(o *Options)) (*Registry, error) {
	var doc Document
	if err := decode(data, format, &doc); err != nil {
		return nil, err
	}
	return New(doc.Tools, doc.Nodes, doc.Prompts, optFns...)
}

func probe(dir string, bases []string) string {
	for _, base := range bases {
		for _, ext := range extensions {
			p := filepath.Join(dir, base+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			} else if !errors.Is(err, fs.ErrNotExist) {
				return p // let decodeFile surface the error
			}
		}
	}
	return ""
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read registry document: %w", err)
	}

	format := detectFormat(path)
	if format == "" {
		return fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}

	if err := decode(data, format, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decode(data []byte, format string, out any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}
	return nil
}

// detectFormat returns "yaml" or "json" based on file extension, or "" if unknown.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
