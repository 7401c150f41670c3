// Package config loads run settings from an optional YAML file and
// exposes the defaults every run falls back to.
package config

import (
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/pkg/errors"
)

const (
	// DefaultMinChunkSize is the Content Key ladder's starting chunk
	// size, per spec.md §3's "e.g. 16 KiB".
	DefaultMinChunkSize = 16 * 1024
	// DefaultMaxChunkSize caps the ladder's doubling, per spec.md §3's
	// "a cap of a few MiB".
	DefaultMaxChunkSize = 4 * 1024 * 1024
	// DefaultBlockSize is the "one filesystem block" spec.md §1's
	// Non-goals and §4.1's skip policy measure the small-file cutoff
	// against. 4 KiB matches the common ext4/xfs/APFS default; --small
	// (or this setting) overrides it.
	DefaultBlockSize = 4096
	// DefaultMaxOpenHandles caps pkg/contentkey's handle LRU.
	DefaultMaxOpenHandles = 256
	// DefaultLinkMode is the run mode used when neither the config file
	// nor a CLI flag names one.
	DefaultLinkMode = "hardlink"
)

// Config is the full set of tunables a run can load from YAML and/or
// override from CLI flags. Zero values are not meaningful; callers
// should start from Default() and override fields explicitly.
type Config struct {
	MinChunkSize   int64    `koanf:"min_chunk_size"`
	MaxChunkSize   int64    `koanf:"max_chunk_size"`
	BlockSize      int64    `koanf:"block_size"`
	MaxOpenHandles int      `koanf:"max_open_handles"`
	Excludes       []string `koanf:"excludes"`
	// LinkMode is the default run mode ("hardlink", "reflink", or
	// "reflink-only") used when no CLI flag overrides it. See
	// linkop.ParseMode for the accepted spellings.
	LinkMode string `koanf:"link_mode"`
}

// Default returns the configuration a run uses when no file and no
// flag overrides anything.
func Default() Config {
	return Config{
		MinChunkSize:   DefaultMinChunkSize,
		MaxChunkSize:   DefaultMaxChunkSize,
		BlockSize:      DefaultBlockSize,
		MaxOpenHandles: DefaultMaxOpenHandles,
		LinkMode:       DefaultLinkMode,
	}
}

// Load reads path (YAML) over top of Default(), leaving any field the
// file does not mention at its default value. An empty path is a no-op
// that just returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return cfg, errors.Wrapf(err, "loading config %q", path)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, errors.Wrapf(err, "unmarshalling config %q", path)
	}
	return cfg, nil
}
