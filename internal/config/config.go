// Package config loads and validates the TOML run configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jobdeck/jobdeck/internal/fault"
	"github.com/jobdeck/jobdeck/internal/member"
)

// System selects the member storage convention.
const (
	SystemDir = "dir" // members are files in directory trees
	SystemPDS = "pds" // members live in partitioned datasets
)

// Config is the validated run configuration. It is consumed by the
// member lookup and the persistence collaborator; the core pipeline never
// reads it directly.
type Config struct {
	Project   string   `toml:"project"`   // project identity for persistence
	Member    string   `toml:"member"`    // target member name
	System    string   `toml:"system"`    // dir | pds
	Path      string   `toml:"path"`      // base lookup root
	Libs      []string `toml:"libs"`      // additional library locations, ordered
	Extension string   `toml:"extension"` // filename extension for dir libraries
	Database  string   `toml:"database"`  // sqlite database path
	Tier      string   `toml:"tier"`      // relative-step tier letter

	MaxDepth        int  `toml:"max_depth"`
	MaxSymbolPasses int  `toml:"max_symbol_passes"`
	DropTables      bool `toml:"drop_tables"`
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fault.Wrap(fault.CodeConfigInvalid, err, "cannot read config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Member == "" {
		return fault.New(fault.CodeConfigInvalid, "member is required")
	}
	if c.Path == "" && len(c.Libs) == 0 {
		return fault.New(fault.CodeConfigInvalid, "path or libs is required")
	}
	switch c.System {
	case "":
		c.System = SystemDir
	case SystemDir, SystemPDS:
	default:
		return fault.New(fault.CodeConfigInvalid, "system must be %q or %q, got %q",
			SystemDir, SystemPDS, c.System)
	}
	if c.Project == "" {
		c.Project = c.Member
	}
	if c.Database == "" {
		c.Database = "jobdeck.db"
	}
	switch len(c.Tier) {
	case 0:
		c.Tier = "X"
	case 1:
		if c.Tier[0] < 'A' || c.Tier[0] > 'Z' {
			return fault.New(fault.CodeConfigInvalid, "tier must be a single letter A-Z, got %q", c.Tier)
		}
	default:
		return fault.New(fault.CodeConfigInvalid, "tier must be a single letter A-Z, got %q", c.Tier)
	}
	return nil
}

// TierByte returns the tier letter as a byte.
func (c *Config) TierByte() byte {
	return c.Tier[0]
}

// Library builds the member lookup collaborator for this configuration.
func (c *Config) Library() *member.SearchPath {
	roots := make([]string, 0, 1+len(c.Libs))
	if c.Path != "" {
		roots = append(roots, c.Path)
	}
	roots = append(roots, c.Libs...)

	var opts []member.Option
	if c.Extension != "" {
		opts = append(opts, member.WithExtension(c.Extension))
	}
	if c.System == SystemPDS {
		opts = append(opts, member.WithPDSConvention())
	}
	return member.NewSearchPath(roots, opts...)
}

// TargetPath returns the physical path of the target member under the
// first location that holds it, for watch mode.
func (c *Config) TargetPath() (string, error) {
	lib := c.Library()
	if !lib.Exists(c.Member) {
		return "", fault.New(fault.CodeMemberNotFound, "member %s not found for watching", c.Member)
	}
	for _, root := range lib.Roots() {
		candidate := memberFile(root, c.Member, c.Extension, c.System == SystemPDS)
		if c.System == SystemPDS {
			return candidate, nil
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fault.New(fault.CodeMemberNotFound, "member %s not found for watching", c.Member)
}

func memberFile(root, name, ext string, pds bool) string {
	if pds {
		return fmt.Sprintf("//'%s(%s)'", root, name)
	}
	if ext != "" {
		return root + string(os.PathSeparator) + name + "." + ext
	}
	return root + string(os.PathSeparator) + name
}
