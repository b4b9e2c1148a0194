package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FixtureDescriptor names one raw frame and its reference codestream.
type FixtureDescriptor struct {
	Name      string `json:"name" yaml:"name" mapstructure:"name"`
	FrameInfo `yaml:",inline" mapstructure:",squash"`
}

// Validate checks the name and the frame layout.
func (d FixtureDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.Wrap(ErrInvalidDescriptor, "empty fixture name")
	}
	if err := d.FrameInfo.Validate(); err != nil {
		return errors.Wrapf(err, "fixture %s", d.Name)
	}
	return nil
}

// FixtureBuilder helps build fixture descriptors with a fluent API.
type FixtureBuilder struct {
	fixture FixtureDescriptor
}

// NewFixtureBuilder creates a builder for a single-component unsigned 8-bit fixture.
func NewFixtureBuilder(name string) *FixtureBuilder {
	return &FixtureBuilder{
		fixture: FixtureDescriptor{
			Name: name,
			FrameInfo: FrameInfo{
				BitsPerSample:  8,
				ComponentCount: 1,
			},
		},
	}
}

// WithDimensions sets the frame width and height.
func (fb *FixtureBuilder) WithDimensions(width, height uint32) *FixtureBuilder {
	fb.fixture.Width = width
	fb.fixture.Height = height
	return fb
}

// WithBitsPerSample sets the sample precision.
func (fb *FixtureBuilder) WithBitsPerSample(bits uint8) *FixtureBuilder {
	fb.fixture.BitsPerSample = bits
	return fb
}

// WithComponents sets the number of interleaved components.
func (fb *FixtureBuilder) WithComponents(count uint32) *FixtureBuilder {
	fb.fixture.ComponentCount = count
	return fb
}

// Signed marks the samples as two's complement.
func (fb *FixtureBuilder) Signed(signed bool) *FixtureBuilder {
	fb.fixture.IsSigned = signed
	return fb
}

// Build returns the configured descriptor.
func (fb *FixtureBuilder) Build() FixtureDescriptor {
	return fb.fixture
}

func mono16(name string, width, height uint32, signed bool) FixtureDescriptor {
	return NewFixtureBuilder(name).WithDimensions(width, height).WithBitsPerSample(16).Signed(signed).Build()
}

func rgb8(name string, width, height uint32) FixtureDescriptor {
	return NewFixtureBuilder(name).WithDimensions(width, height).WithComponents(3).Build()
}

// DefaultCorpus returns the standard DICOM test corpus in benchmark order.
func DefaultCorpus() []FixtureDescriptor {
	return []FixtureDescriptor{
		mono16("CT1", 512, 512, true),
		mono16("CT2", 512, 512, true),
		mono16("MG1", 3064, 4774, false),
		mono16("MR1", 512, 512, true),
		mono16("MR2", 1024, 1024, false),
		mono16("MR3", 512, 512, true),
		mono16("MR4", 512, 512, false),
		mono16("NM1", 256, 1024, true),
		mono16("RG1", 1841, 1955, false),
		mono16("RG2", 1760, 2140, false),
		mono16("RG3", 1760, 1760, false),
		mono16("SC1", 2048, 2487, false),
		rgb8("US1", 640, 480),
		rgb8("VL1", 756, 486),
		rgb8("VL2", 756, 486),
		rgb8("VL3", 756, 486),
		rgb8("VL4", 2226, 1868),
		rgb8("VL5", 2670, 3340),
		rgb8("VL6", 756, 486),
		mono16("XA1", 1024, 1024, false),
	}
}

// SelectFixtures returns the fixtures whose names appear in names, in the order of
// names. An empty names list returns fixtures unchanged.
func SelectFixtures(fixtures []FixtureDescriptor, names []string) ([]FixtureDescriptor, error) {
	if len(names) == 0 {
		return fixtures, nil
	}
	byName := make(map[string]FixtureDescriptor, len(fixtures))
	for _, f := range fixtures {
		byName[strings.ToUpper(f.Name)] = f
	}
	selected := make([]FixtureDescriptor, 0, len(names))
	for _, name := range names {
		f, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidDescriptor, "unknown fixture %q", name)
		}
		selected = append(selected, f)
	}
	return selected, nil
}

// FixtureSet is a named, ordered corpus that can be saved as YAML or JSON.
type FixtureSet struct {
	Name        string              `json:"name"        yaml:"name"`
	Description string              `json:"description" yaml:"description"`
	Fixtures    []FixtureDescriptor `json:"fixtures"    yaml:"fixtures"`
}

// Validate checks every descriptor and rejects duplicate names.
func (fs *FixtureSet) Validate() error {
	if len(fs.Fixtures) == 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "fixture set %q is empty", fs.Name)
	}
	seen := make(map[string]bool, len(fs.Fixtures))
	for _, f := range fs.Fixtures {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Name] {
			return errors.Wrapf(ErrInvalidDescriptor, "duplicate fixture %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// DefaultFixtureSet wraps DefaultCorpus.
func DefaultFixtureSet() *FixtureSet {
	return &FixtureSet{
		Name:        "dicom",
		Description: "DICOM test images: CT, MG, MR, NM, RG, SC, US, VL and XA modalities",
		Fixtures:    DefaultCorpus(),
	}
}

// SaveFixtureSet writes a fixture set to filename. The format follows the extension:
// .json writes JSON, anything else writes YAML.
func SaveFixtureSet(set *FixtureSet, filename string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(filename) {
		data, err = json.MarshalIndent(set, "", "  ")
	} else {
		data, err = yaml.Marshal(set)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal fixture set")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write fixture set")
	}

	return nil
}

// LoadFixtureSet reads and validates a fixture set written by SaveFixtureSet.
func LoadFixtureSet(filename string) (*FixtureSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read fixture set")
	}

	var set FixtureSet
	if isJSON(filename) {
		err = json.Unmarshal(data, &set)
	} else {
		err = yaml.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal fixture set %s", filename)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	return &set, nil
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
