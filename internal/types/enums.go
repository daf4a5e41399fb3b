package types

import (
	"fmt"
	"strings"
)

type RepositoryCode string

const (
	RepositoryCodeUnknown     RepositoryCode = "unknown"
	RepositoryCodeBroken      RepositoryCode = "broken"
	RepositoryCodeScheduling  RepositoryCode = "scheduling"
	RepositoryCodeBlocked     RepositoryCode = "blocked"
	RepositoryCodeBuilding    RepositoryCode = "building"
	RepositoryCodeFinished    RepositoryCode = "finished"
	RepositoryCodePublishing  RepositoryCode = "publishing"
	RepositoryCodePublished   RepositoryCode = "published"
	RepositoryCodeUnpublished RepositoryCode = "unpublished"
)

var repositoryCodes = []RepositoryCode{
	RepositoryCodeUnknown,
	RepositoryCodeBroken,
	RepositoryCodeScheduling,
	RepositoryCodeBlocked,
	RepositoryCodeBuilding,
	RepositoryCodeFinished,
	RepositoryCodePublishing,
	RepositoryCodePublished,
	RepositoryCodeUnpublished,
}

func ParseRepositoryCode(value string) (RepositoryCode, error) {
	return parseEnum("repository code", value, repositoryCodes)
}

func (c RepositoryCode) String() string { return string(c) }

func (c RepositoryCode) MarshalText() ([]byte, error) { return []byte(c), nil }

func (c *RepositoryCode) UnmarshalText(text []byte) error {
	parsed, err := ParseRepositoryCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PackageCode is the build state of a single package in one repository/arch.
type PackageCode string

const (
	PackageCodeUnresolvable PackageCode = "unresolvable"
	PackageCodeSucceeded    PackageCode = "succeeded"
	PackageCodeDispatching  PackageCode = "dispatching"
	PackageCodeFailed       PackageCode = "failed"
	PackageCodeBroken       PackageCode = "broken"
	PackageCodeDisabled     PackageCode = "disabled"
	PackageCodeExcluded     PackageCode = "excluded"
	PackageCodeBlocked      PackageCode = "blocked"
	PackageCodeLocked       PackageCode = "locked"
	PackageCodeUnknown      PackageCode = "unknown"
	PackageCodeScheduled    PackageCode = "scheduled"
	PackageCodeBuilding     PackageCode = "building"
	PackageCodeFinished     PackageCode = "finished"
)

var packageCodes = []PackageCode{
	PackageCodeUnresolvable,
	PackageCodeSucceeded,
	PackageCodeDispatching,
	PackageCodeFailed,
	PackageCodeBroken,
	PackageCodeDisabled,
	PackageCodeExcluded,
	PackageCodeBlocked,
	PackageCodeLocked,
	PackageCodeUnknown,
	PackageCodeScheduled,
	PackageCodeBuilding,
	PackageCodeFinished,
}

func ParsePackageCode(value string) (PackageCode, error) {
	return parseEnum("package code", value, packageCodes)
}

// IsFinal reports whether the scheduler will not change the code again
// without new input (a source change or an explicit rebuild).
func (c PackageCode) IsFinal() bool {
	switch c {
	case PackageCodeBroken, PackageCodeDisabled, PackageCodeExcluded, PackageCodeFailed, PackageCodeSucceeded:
		return true
	default:
		return false
	}
}

func (c PackageCode) String() string { return string(c) }

func (c PackageCode) MarshalText() ([]byte, error) { return []byte(c), nil }

func (c *PackageCode) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type RebuildMode string

const (
	RebuildModeTransitive RebuildMode = "transitive"
	RebuildModeDirect     RebuildMode = "direct"
	RebuildModeLocal      RebuildMode = "local"
)

var rebuildModes = []RebuildMode{RebuildModeTransitive, RebuildModeDirect, RebuildModeLocal}

func ParseRebuildMode(value string) (RebuildMode, error) {
	return parseEnum("rebuild mode", value, rebuildModes)
}

// OrDefault returns the mode OBS applies when the attribute is absent.
func (m RebuildMode) OrDefault() RebuildMode {
	if m == "" {
		return RebuildModeTransitive
	}
	return m
}

func (m RebuildMode) String() string { return string(m) }

func (m RebuildMode) MarshalText() ([]byte, error) { return []byte(m), nil }

func (m *RebuildMode) UnmarshalText(text []byte) error {
	parsed, err := ParseRebuildMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type BlockMode string

const (
	BlockModeAll   BlockMode = "all"
	BlockModeLocal BlockMode = "local"
	BlockModeNever BlockMode = "never"
)

var blockModes = []BlockMode{BlockModeAll, BlockModeLocal, BlockModeNever}

func ParseBlockMode(value string) (BlockMode, error) {
	return parseEnum("block mode", value, blockModes)
}

func (m BlockMode) OrDefault() BlockMode {
	if m == "" {
		return BlockModeAll
	}
	return m
}

func (m BlockMode) String() string { return string(m) }

func (m BlockMode) MarshalText() ([]byte, error) { return []byte(m), nil }

func (m *BlockMode) UnmarshalText(text []byte) error {
	parsed, err := ParseBlockMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)

func ParseOutputFormat(value string) (OutputFormat, error) {
	if strings.TrimSpace(value) == "" {
		return OutputFormatText, nil
	}
	return parseEnum("output format", strings.ToLower(strings.TrimSpace(value)), []OutputFormat{OutputFormatText, OutputFormatYAML})
}

// parseEnum accepts the empty string as "unset" so optional attributes
// written as attr="" decode to the zero value.
func parseEnum[T ~string](kind string, value string, allowed []T) (T, error) {
	if value == "" {
		return "", nil
	}
	for _, candidate := range allowed {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q", kind, value)
}
