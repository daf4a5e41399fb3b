package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const maxNameLength = 200

var reservedPackagePrefixes = []string{"_project", "_product", "_patchinfo", "_pattern"}

// ValidateProjectName checks a project name against the characters the
// build service accepts.
func ValidateProjectName(name string) error {
	if err := validateCommonName("project", name); err != nil {
		return err
	}
	if !isAlnum(name[0]) {
		return invalidName("project", name, "must start with a letter or digit")
	}
	if strings.Contains(name, "::") || strings.HasSuffix(name, ":") {
		return invalidName("project", name, "contains an empty ':' component")
	}
	return nil
}

func ValidatePackageName(name string) error {
	if err := validateCommonName("package", name); err != nil {
		return err
	}
	if isAlnum(name[0]) {
		return nil
	}
	for _, prefix := range reservedPackagePrefixes {
		if name == prefix {
			return nil
		}
		if strings.HasPrefix(name, prefix) {
			next := name[len(prefix)]
			if next == '.' || next == ':' {
				return nil
			}
		}
	}
	return invalidName("package", name, "must start with a letter or digit")
}

// ValidateFileName rejects names that would escape the package directory.
func ValidateFileName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("file name is empty")
	}
	if trimmed != name || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return invalidName("file", name, "is not a plain file name")
	}
	return nil
}

func validateCommonName(kind string, name string) error {
	if name == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(kind + " name is empty")
	}
	if len(name) > maxNameLength {
		return invalidName(kind, name, fmt.Sprintf("is longer than %d characters", maxNameLength))
	}
	for i := 0; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return invalidName(kind, name, fmt.Sprintf("contains invalid character %q", name[i]))
		}
	}
	return nil
}

func invalidName(kind string, name string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid %s name %q: %s", kind, name, reason))
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNameChar(c byte) bool {
	if isAlnum(c) {
		return true
	}
	switch c {
	case '_', '+', '-', '.', ':':
		return true
	default:
		return false
	}
}
