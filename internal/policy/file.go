package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

// LoadFile reads a JSON (.json) or YAML (anything else) policy file.
func LoadFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// Save writes p as YAML, or JSON when path ends in .json.
func Save(path string, p Policy) error {
	if p == nil {
		p = Empty()
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return utils.WriteJSON(path, p)
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// FileProvider serves a policy from disk, re-reading it on every call.
type FileProvider struct {
	Path string
}

func (f FileProvider) Provide(_ context.Context, _ map[string]*schema.TableSchema) (Policy, error) {
	return LoadFile(f.Path)
}
