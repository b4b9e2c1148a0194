package benchmark

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// BindingConfig selects and configures the codec binding.
type BindingConfig struct {
	// Name is "opencv" or "openjpeg".
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	// CompressPath and DecompressPath locate opj_compress and opj_decompress. Empty
	// values are looked up on PATH.
	CompressPath   string `mapstructure:"compressPath"   yaml:"compressPath"   json:"compressPath"`
	DecompressPath string `mapstructure:"decompressPath" yaml:"decompressPath" json:"decompressPath"`
	// WorkDir is the parent of per-instance scratch directories. Empty uses os.TempDir.
	WorkDir string `mapstructure:"workDir" yaml:"workDir" json:"workDir"`
	// Threads is passed to bindings that support multi-threaded coding; 0 keeps the
	// library default.
	Threads int `mapstructure:"threads" yaml:"threads" json:"threads"`
}

// FixturesConfig locates the corpus.
type FixturesConfig struct {
	RawDir        string `mapstructure:"rawDir"        yaml:"rawDir"        json:"rawDir"`
	CodestreamDir string `mapstructure:"codestreamDir" yaml:"codestreamDir" json:"codestreamDir"`
	// Manifest is an optional YAML or JSON FixtureSet replacing the default corpus.
	Manifest string `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
	// Names restricts the corpus to the listed fixtures, in the listed order.
	Names []string `mapstructure:"names" yaml:"names" json:"names"`
}

// OutputConfig controls what a run leaves on disk.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"         yaml:"dir"         json:"dir"`
	SaveResults bool   `mapstructure:"saveResults" yaml:"saveResults" json:"saveResults"`
	// Artifacts writes every encoded codestream and decoded frame under Dir.
	Artifacts bool `mapstructure:"artifacts" yaml:"artifacts" json:"artifacts"`
	// Previews writes a PNG thumbnail of every decoded frame under Dir.
	Previews            bool   `mapstructure:"previews"            yaml:"previews"            json:"previews"`
	PreviewMaxDimension uint   `mapstructure:"previewMaxDimension" yaml:"previewMaxDimension" json:"previewMaxDimension"`
	MetricsFile         string `mapstructure:"metricsFile"         yaml:"metricsFile"         json:"metricsFile"`
}

// Config represents the overall benchmark configuration.
type Config struct {
	Binding          BindingConfig  `mapstructure:"binding"          yaml:"binding"          json:"binding"`
	Fixtures         FixturesConfig `mapstructure:"fixtures"         yaml:"fixtures"         json:"fixtures"`
	Iterations       uint32         `mapstructure:"iterations"       yaml:"iterations"       json:"iterations"`
	Operations       []Operation    `mapstructure:"operations"       yaml:"operations"       json:"operations"`
	StrictFrameCheck bool           `mapstructure:"strictFrameCheck" yaml:"strictFrameCheck" json:"strictFrameCheck"`
	Encode           EncodeOptions  `mapstructure:"encode"           yaml:"encode"           json:"encode"`
	Decode           DecodeOptions  `mapstructure:"decode"           yaml:"decode"           json:"decode"`
	Output           OutputConfig   `mapstructure:"output"           yaml:"output"           json:"output"`
}

// DefaultConfig returns a default benchmark configuration.
func DefaultConfig() *Config {
	return &Config{
		Binding: BindingConfig{Name: "opencv"},
		Fixtures: FixturesConfig{
			RawDir:        "test/fixtures/raw",
			CodestreamDir: "test/fixtures/j2k",
		},
		Iterations: 1,
		Operations: []Operation{OperationEncode, OperationDecode},
		Encode:     DefaultEncodeOptions(),
		Output: OutputConfig{
			Dir:                 "./benchmark_results",
			PreviewMaxDimension: 256,
		},
	}
}

// SetDefaults registers DefaultConfig's values on v so that every key is known to
// viper, which lets bound flags and config files override them individually.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("binding.name", d.Binding.Name)
	v.SetDefault("binding.compressPath", d.Binding.CompressPath)
	v.SetDefault("binding.decompressPath", d.Binding.DecompressPath)
	v.SetDefault("binding.workDir", d.Binding.WorkDir)
	v.SetDefault("binding.threads", d.Binding.Threads)
	v.SetDefault("fixtures.rawDir", d.Fixtures.RawDir)
	v.SetDefault("fixtures.codestreamDir", d.Fixtures.CodestreamDir)
	v.SetDefault("fixtures.manifest", d.Fixtures.Manifest)
	v.SetDefault("fixtures.names", []string{})
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("operations", []string{string(OperationEncode), string(OperationDecode)})
	v.SetDefault("strictFrameCheck", d.StrictFrameCheck)
	v.SetDefault("encode.lossless", d.Encode.Lossless)
	v.SetDefault("encode.decompositions", d.Encode.Decompositions)
	v.SetDefault("encode.progressionOrder", d.Encode.ProgressionOrder)
	v.SetDefault("encode.blockDimensions.width", d.Encode.BlockDimensions.Width)
	v.SetDefault("encode.blockDimensions.height", d.Encode.BlockDimensions.Height)
	v.SetDefault("encode.compressionRatio", d.Encode.CompressionRatio)
	v.SetDefault("encode.colorTransform", d.Encode.ColorTransform)
	v.SetDefault("decode.decompositionLevel", d.Decode.DecompositionLevel)
	v.SetDefault("decode.decodeLayer", d.Decode.DecodeLayer)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.saveResults", d.Output.SaveResults)
	v.SetDefault("output.artifacts", d.Output.Artifacts)
	v.SetDefault("output.previews", d.Output.Previews)
	v.SetDefault("output.previewMaxDimension", d.Output.PreviewMaxDimension)
	v.SetDefault("output.metricsFile", d.Output.MetricsFile)
}

// LoadConfig reads the config file at path (if any) into v and decodes the result.
// Flags must already be bound to v.
//
// Arguments:
//   - v: The viper instance carrying defaults and bound flags.
//   - path: A YAML config file, or empty to use defaults and flags only.
//
// Returns:
//   - *Config: The decoded and validated configuration.
//   - error: Error if the file cannot be read or the configuration is invalid.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Binding.Name = strings.ToLower(strings.TrimSpace(c.Binding.Name))
	for i, op := range c.Operations {
		c.Operations[i] = Operation(strings.ToLower(strings.TrimSpace(string(op))))
	}
	var names []string
	for _, n := range c.Fixtures.Names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	c.Fixtures.Names = names
}

// Validate checks the configuration before any binding is loaded.
func (c *Config) Validate() error {
	if c.Binding.Name == "" {
		return errors.Wrap(ErrInvalidOptions, "binding name is required")
	}
	if c.Iterations == 0 {
		return ErrInvalidIterations
	}
	if len(c.Operations) == 0 {
		return errors.Wrap(ErrInvalidOptions, "at least one operation is required")
	}
	for _, op := range c.Operations {
		if op != OperationEncode && op != OperationDecode {
			return errors.Wrapf(ErrInvalidOptions, "unknown operation %q", op)
		}
	}
	if err := c.Encode.Validate(); err != nil {
		return err
	}
	if err := c.Decode.Validate(); err != nil {
		return err
	}
	if (c.Output.SaveResults || c.Output.Artifacts || c.Output.Previews) && c.Output.Dir == "" {
		return errors.Wrap(ErrInvalidOptions, "output directory is required")
	}
	return nil
}

// ResolveFixtures returns the corpus named by the configuration: the manifest if
// one is set, otherwise DefaultCorpus, narrowed to Fixtures.Names.
func (c *Config) ResolveFixtures() ([]FixtureDescriptor, error) {
	fixtures := DefaultCorpus()
	if c.Fixtures.Manifest != "" {
		set, err := LoadFixtureSet(c.Fixtures.Manifest)
		if err != nil {
			return nil, err
		}
		fixtures = set.Fixtures
	}
	return SelectFixtures(fixtures, c.Fixtures.Names)
}

// Store returns a DirStore over the configured fixture directories.
func (c *Config) Store() *DirStore {
	return NewDirStore(c.Fixtures.RawDir, c.Fixtures.CodestreamDir)
}
