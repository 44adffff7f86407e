package config

import (
	"fmt"
	"os"

	"modernc.org/libqbe"

	"github.com/xplshn/glir/pkg/cli"
	"github.com/xplshn/glir/pkg/ir"
)

type Feature int

const (
	// FeatStaticElision allows omitting the bounds check entirely when a
	// 32-bit offset provably cannot exceed a static heap's limit.
	FeatStaticElision Feature = iota
	// FeatEvenImm allows rewriting an odd static limit into the
	// equivalent check against the even limit-1 immediate.
	FeatEvenImm
	FeatCount
)

type Warning int

const (
	// WarnOOBConst fires when a heap access is provably out of bounds at
	// compile time and gets lowered to an unconditional trap.
	WarnOOBConst Warning = iota
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	TargetArch string
	QbeTarget  string
	WordSize   int
	WordType   string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatStaticElision: {"static-elision", true, "Omit bounds checks that a 32-bit offset can never fail."},
		FeatEvenImm:       {"even-imm", true, "Prefer even comparison immediates for static heap limits."},
	}

	warnings := map[Warning]Info{
		WarnOOBConst: {"oob-const", true, "Warn when a heap access is provably always out of bounds."},
		WarnExtra:    {"extra", false, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the target machine properties from a QBE-style
// target name, defaulting to the host.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
	} else {
		c.QbeTarget = qbeTarget
	}

	c.TargetArch = goarch

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.WordType = 8, "l"
	case "arm", "rv32":
		c.WordSize, c.WordType = 4, "w"
	default:
		fmt.Fprintf(os.Stderr, "glir: warning: unrecognized QBE target '%s', assuming 64-bit.\n", c.QbeTarget)
		c.WordSize, c.WordType = 8, "l"
	}
}

// PointerType returns the IR type of a pointer on the selected target.
// Config satisfies ir.TargetIsa through it.
func (c *Config) PointerType() ir.Type {
	if c.WordSize == 4 {
		return ir.TypeI32
	}
	return ir.TypeI64
}

var _ ir.TargetIsa = (*Config)(nil)

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// Warnf prints a gated warning in the compiler's diagnostic format.
func (c *Config) Warnf(wt Warning, format string, args ...any) {
	if !c.IsWarningEnabled(wt) {
		return
	}
	fmt.Fprintf(os.Stderr, "glir: \033[33mwarning:\033[0m ")
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", c.Warnings[wt].Name)
}

// SetupFlagGroups registers the -F<feature> and -W<warning> flag groups
// on a flag set and returns the entries so the caller can apply them
// after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningEntries := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningEntries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Warnings", "Diagnostics the legalizer can emit.", "warning", "Available warnings", warningEntries)

	featureEntries := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureEntries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Features", "Optional lowering strategies.", "feature", "Available features", featureEntries)

	return warningEntries, featureEntries
}
