package adapters

import (
	"bytes"
	"compress/bzip2"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-ini/ini"
	"github.com/spf13/afero"

	"obsctl/internal/ports"
	"obsctl/internal/shared"
	"obsctl/internal/types"
)

const defaultOscrcAPIURL = "https://api.opensuse.org"

const (
	credentialsManagerPlaintext  = "osc.credentials.PlaintextConfigFileCredentialsManager"
	credentialsManagerObfuscated = "osc.credentials.ObfuscatedConfigFileCredentialsManager"
	credentialsManagerTransient  = "osc.credentials.TransientCredentialsManager"
	credentialsManagerKeyring    = "osc.credentials.KeyringCredentialsManager"
)

// Keyring backends whose entries the system keyring can read.
var supportedKeyringBackends = []string{
	"keyring.backends.SecretService.Keyring",
	"keyring.backends.macOS.Keyring",
}

type oscrcService struct {
	url            string
	aliases        []string
	user           string
	pass           string
	passx          string
	credentialsMgr string
}

// Oscrc is a parsed osc configuration file. Keyring serves sections whose
// password lives in the desktop keyring; the system keyring is used when it
// is nil.
type Oscrc struct {
	Keyring  ports.KeyringPort
	apiURL   string
	services []oscrcService
}

// ParseOscrc reads the [general] section and every service section of an
// osc configuration.
func ParseOscrc(data []byte) (*Oscrc, error) {
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse oscrc").
			WithCause(err)
	}
	rc := &Oscrc{apiURL: defaultOscrcAPIURL}
	if general, err := file.GetSection("general"); err == nil && general.HasKey("apiurl") {
		if value := strings.TrimSpace(general.Key("apiurl").String()); value != "" {
			rc.apiURL = value
		}
	}
	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DEFAULT_SECTION || name == "general" {
			continue
		}
		service := oscrcService{
			url:            shared.NormalizeAPIURL(name),
			user:           section.Key("user").String(),
			pass:           section.Key("pass").String(),
			passx:          section.Key("passx").String(),
			credentialsMgr: strings.TrimSpace(section.Key("credentials_mgr_class").String()),
		}
		for _, alias := range strings.Split(section.Key("aliases").String(), ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				service.aliases = append(service.aliases, alias)
			}
		}
		rc.services = append(rc.services, service)
	}
	return rc, nil
}

// DefaultAPIURL returns [general] apiurl, resolved through aliases.
func (o *Oscrc) DefaultAPIURL() string {
	if service, ok := o.service(o.apiURL); ok {
		return service.url
	}
	return shared.NormalizeAPIURL(o.apiURL)
}

// Credentials returns user and password for the service with the given API
// URL or alias.
func (o *Oscrc) Credentials(apiURL string) (types.Credentials, error) {
	service, ok := o.service(apiURL)
	if !ok {
		return types.Credentials{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no oscrc section for %s", apiURL))
	}
	keyring := o.Keyring
	if keyring == nil {
		keyring = NewSystemKeyring()
	}
	password, err := service.password(keyring)
	if err != nil {
		return types.Credentials{}, err
	}
	return types.Credentials{APIURL: service.url, Username: service.user, Password: password}, nil
}

func (o *Oscrc) service(apiURL string) (oscrcService, bool) {
	wanted := shared.NormalizeAPIURL(apiURL)
	for _, service := range o.services {
		if service.url == wanted {
			return service, true
		}
	}
	for _, service := range o.services {
		for _, alias := range service.aliases {
			if alias == strings.TrimSpace(apiURL) {
				return service, true
			}
		}
	}
	return oscrcService{}, false
}

func (s oscrcService) password(keyring ports.KeyringPort) (string, error) {
	if s.credentialsMgr == credentialsManagerObfuscated {
		encoded := s.pass
		if encoded == "" {
			encoded = s.passx
		}
		if encoded == "" {
			return "", s.missingPassword()
		}
		return decodeObfuscatedPassword(encoded)
	}
	if s.pass != "" {
		return s.pass, nil
	}
	if s.passx != "" {
		return decodeObfuscatedPassword(s.passx)
	}
	switch {
	case s.credentialsMgr == "", s.credentialsMgr == credentialsManagerPlaintext, s.credentialsMgr == credentialsManagerTransient:
		return "", s.missingPassword()
	case strings.HasPrefix(s.credentialsMgr, credentialsManagerKeyring):
		return s.keyringPassword(keyring)
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unknown credentials manager %q", s.credentialsMgr))
	}
}

// keyringPassword looks the password up under the API host, which is the
// service name osc stores it with.
func (s oscrcService) keyringPassword(keyring ports.KeyringPort) (string, error) {
	_, backend, _ := strings.Cut(s.credentialsMgr, ":")
	supported := false
	for _, candidate := range supportedKeyringBackends {
		if backend == candidate {
			supported = true
		}
	}
	if !supported {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("credentials manager %q is not supported", s.credentialsMgr))
	}
	parsed, err := url.Parse(s.url)
	if err != nil || parsed.Hostname() == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("oscrc section %s is not a URL with a host", s.url))
	}
	if s.user == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("oscrc section %s has no user", s.url))
	}
	return keyring.Password(parsed.Hostname(), s.user)
}

func (s oscrcService) missingPassword() error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("oscrc section %s has no password", s.url))
}

// decodeObfuscatedPassword reverses osc's base64(bzip2(password)) encoding.
func decodeObfuscatedPassword(encoded string) (string, error) {
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", malformedPassword(err)
	}
	plain, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return "", malformedPassword(err)
	}
	return string(plain), nil
}

func malformedPassword(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("malformed obfuscated password in oscrc").
		WithCause(err)
}

// OscrcAdapter reads credentials from an oscrc file on every call.
type OscrcAdapter struct {
	Fs      afero.Fs
	Path    string
	Keyring ports.KeyringPort
}

// NewOscrcAdapter uses path when set, otherwise the first existing file of
// $OSC_CONFIG, $XDG_CONFIG_HOME/osc/oscrc, ~/.config/osc/oscrc and ~/.oscrc.
func NewOscrcAdapter(fs afero.Fs, path string) OscrcAdapter {
	if strings.TrimSpace(path) == "" {
		path = defaultOscrcPath(fs)
	}
	return OscrcAdapter{Fs: fs, Path: path, Keyring: NewSystemKeyring()}
}

func (a OscrcAdapter) load() (*Oscrc, error) {
	if strings.TrimSpace(a.Path) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no oscrc found")
	}
	data, err := afero.ReadFile(a.Fs, a.Path)
	if err != nil {
		code := errbuilder.CodeInvalidArgument
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return nil, errbuilder.New().
			WithCode(code).
			WithMsg(fmt.Sprintf("failed to read oscrc %s", a.Path)).
			WithCause(err)
	}
	rc, err := ParseOscrc(data)
	if err != nil {
		return nil, err
	}
	rc.Keyring = a.Keyring
	return rc, nil
}

func (a OscrcAdapter) DefaultAPIURL() (string, error) {
	rc, err := a.load()
	if err != nil {
		return "", err
	}
	return rc.DefaultAPIURL(), nil
}

func (a OscrcAdapter) Credentials(apiURL string) (types.Credentials, error) {
	rc, err := a.load()
	if err != nil {
		return types.Credentials{}, err
	}
	return rc.Credentials(apiURL)
}

func defaultOscrcPath(fs afero.Fs) string {
	var candidates []string
	if env := os.Getenv("OSC_CONFIG"); env != "" {
		candidates = append(candidates, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "osc", "oscrc"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "osc", "oscrc"),
			filepath.Join(home, ".oscrc"),
		)
	}
	for _, candidate := range candidates {
		if _, err := fs.Stat(candidate); err == nil {
			return candidate
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
