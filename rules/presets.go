package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

//go:embed presets/*.yaml
var presets embed.FS

// Names returns names of all embedded presets in natural order.
func Names() []string {
	entries, err := fs.ReadDir(presets, "presets")
	if err != nil {
		// embedded, this should never happen
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// PresetData returns YAML source of embedded preset.
func PresetData(name string) ([]byte, error) {
	data, err := presets.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown rule set preset %q, try one of [%s]", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Preset returns embedded rule set by name.
func Preset(name string) (*RuleSet, error) {
	data, err := PresetData(name)
	if err != nil {
		return nil, err
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return rs, nil
}

// Resolve treats its argument as a path to rule set file first and as a
// preset name when there is no such file.
func Resolve(nameOrPath string) (*RuleSet, error) {
	if nameOrPath == "" {
		return nil, errors.New("no rule set specified")
	}
	if fi, err := os.Stat(nameOrPath); err == nil && fi.Mode().IsRegular() {
		return Load(nameOrPath)
	}
	return Preset(nameOrPath)
}
