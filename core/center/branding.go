package center

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/kidcare/fs"
)

const (
	brandingPresetsPath = "branding/presets.yaml"
	DefaultPreset       = "default"
)

type preset struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

var (
	presets     map[string]preset
	presetsErr  error
	presetsOnce sync.Once
)

func loadPresets() (map[string]preset, error) {
	presetsOnce.Do(func() {
		data, err := appfs.FS.ReadFile(brandingPresetsPath)
		if err != nil {
			presetsErr = errors.Wrap(err, "reading branding presets")
			return
		}
		if err = yaml.Unmarshal(data, &presets); err != nil {
			presetsErr = errors.Wrap(err, "parsing branding presets")
		}
	})
	return presets, presetsErr
}

// Presets returns the names of the available branding presets.
func Presets() ([]string, error) {
	ps, err := loadPresets()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ResolveBranding fills empty colors of `b` from its preset, falling back to the default preset.
func ResolveBranding(b Branding) (Branding, error) {
	ps, err := loadPresets()
	if err != nil {
		return b, err
	}
	p, ok := ps[b.Preset]
	if !ok {
		b.Preset = DefaultPreset
		p = ps[DefaultPreset]
	}
	if b.PrimaryColor == "" {
		b.PrimaryColor = p.Primary
	}
	if b.SecondaryColor == "" {
		b.SecondaryColor = p.Secondary
	}
	return b, nil
}
