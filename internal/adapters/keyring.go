package adapters

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/zalando/go-keyring"
)

// SystemKeyring reads from the OS secret store: the Secret Service on
// Linux, the Keychain on macOS. Entries are looked up by service and
// username, the attributes python-keyring writes for osc.
type SystemKeyring struct{}

func NewSystemKeyring() SystemKeyring {
	return SystemKeyring{}
}

func (SystemKeyring) Password(service string, user string) (string, error) {
	password, err := keyring.Get(service, user)
	if err == nil {
		return password, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no keyring password for %s on %s", user, service))
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("failed to read keyring password for %s on %s", user, service)).
		WithCause(err)
}
