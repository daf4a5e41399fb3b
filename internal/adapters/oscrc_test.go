package adapters

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"obsctl/internal/types"
)

// base64(bzip2("opensesame")), as written by osc.
const obfuscatedOpenSesame = "QlpoOTFBWSZTWWwFoP8AAAMBgCIDyAAgADEMAQ0xqBOcwR4u5IpwoSDYC0H+"

const sampleOscrc = `[general]
apiurl = obs

[https://api.opensuse.org/]
user = alice
pass = plain-secret

[https://obs.example.com]
aliases = obs, example
user = bob
passx = ` + obfuscatedOpenSesame + `

[https://obfuscated.example.com]
user = carol
pass = ` + obfuscatedOpenSesame + `
credentials_mgr_class = osc.credentials.ObfuscatedConfigFileCredentialsManager

[https://keyring.example.com]
user = dave
credentials_mgr_class = osc.credentials.KeyringCredentialsManager:keyring.backends.SecretService.Keyring

[https://kwallet.example.com]
user = grace
credentials_mgr_class = osc.credentials.KeyringCredentialsManager:keyring.backends.kwallet.DBusKeyring

[https://nokey.example.com:444/]
user = heidi
credentials_mgr_class = osc.credentials.KeyringCredentialsManager:keyring.backends.SecretService.Keyring

[https://weird.example.com]
user = erin
credentials_mgr_class = something.Else

[https://nopass.example.com]
user = frank
`

type fakeKeyring map[string]string

func (k fakeKeyring) Password(service string, user string) (string, error) {
	if password, ok := k[service+"/"+user]; ok {
		return password, nil
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("no keyring password for " + user + " on " + service)
}

func TestParseOscrcCredentials(t *testing.T) {
	rc, err := ParseOscrc([]byte(sampleOscrc))
	require.NoError(t, err)
	rc.Keyring = fakeKeyring{"keyring.example.com/dave": "from-keyring"}
	assert.Equal(t, "https://obs.example.com", rc.DefaultAPIURL())

	tests := []struct {
		name     string
		apiURL   string
		want     types.Credentials
		wantErr  bool
		wantCode errbuilder.ErrCode
	}{
		{
			name:   "plain password with trailing slash section",
			apiURL: "https://api.opensuse.org",
			want:   types.Credentials{APIURL: "https://api.opensuse.org", Username: "alice", Password: "plain-secret"},
		},
		{
			name:   "alias with passx",
			apiURL: "example",
			want:   types.Credentials{APIURL: "https://obs.example.com", Username: "bob", Password: "opensesame"},
		},
		{
			name:   "obfuscated credentials manager",
			apiURL: "https://obfuscated.example.com/",
			want:   types.Credentials{APIURL: "https://obfuscated.example.com", Username: "carol", Password: "opensesame"},
		},
		{
			name:   "secret service keyring",
			apiURL: "https://keyring.example.com",
			want:   types.Credentials{APIURL: "https://keyring.example.com", Username: "dave", Password: "from-keyring"},
		},
		{name: "keyring without entry", apiURL: "https://nokey.example.com:444", wantErr: true, wantCode: errbuilder.CodeFailedPrecondition},
		{name: "unsupported keyring backend", apiURL: "https://kwallet.example.com", wantErr: true, wantCode: errbuilder.CodeFailedPrecondition},
		{name: "unknown manager", apiURL: "https://weird.example.com", wantErr: true, wantCode: errbuilder.CodeFailedPrecondition},
		{name: "missing password", apiURL: "https://nopass.example.com", wantErr: true, wantCode: errbuilder.CodeFailedPrecondition},
		{name: "unknown service", apiURL: "https://missing.example.com", wantErr: true, wantCode: errbuilder.CodeNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := rc.Credentials(tt.apiURL)
			if tt.wantErr {
				require.Error(t, err)
				if diff := cmp.Diff(tt.wantCode, errbuilder.CodeOf(err)); diff != "" {
					t.Fatalf("unexpected error code (-want +got):\n%s", diff)
				}
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected credentials (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseOscrcDefaults(t *testing.T) {
	rc, err := ParseOscrc([]byte("[https://api.opensuse.org]\nuser = alice\npass = x\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.opensuse.org", rc.DefaultAPIURL())
}

func TestDecodeObfuscatedPasswordRejectsGarbage(t *testing.T) {
	for _, value := range []string{"not base64!", "aGVsbG8="} {
		_, err := decodeObfuscatedPassword(value)
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	}
}

func TestOscrcAdapterReadsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/alice/.oscrc", []byte(sampleOscrc), 0o600))

	adapter := NewOscrcAdapter(fs, "/home/alice/.oscrc")
	apiURL, err := adapter.DefaultAPIURL()
	require.NoError(t, err)
	assert.Equal(t, "https://obs.example.com", apiURL)

	creds, err := adapter.Credentials(apiURL)
	require.NoError(t, err)
	assert.Equal(t, "bob", creds.Username)
	assert.Equal(t, "opensesame", creds.Password)
	assert.NotContains(t, creds.String(), "opensesame")
}

func TestOscrcAdapterUsesKeyring(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/alice/.oscrc", []byte(sampleOscrc), 0o600))

	adapter := NewOscrcAdapter(fs, "/home/alice/.oscrc")
	adapter.Keyring = fakeKeyring{"nokey.example.com/heidi": "port-is-ignored"}
	creds, err := adapter.Credentials("https://nokey.example.com:444")
	require.NoError(t, err)
	assert.Equal(t, "heidi", creds.Username)
	assert.Equal(t, "port-is-ignored", creds.Password)
}

func TestSystemKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("api.opensuse.org", "alice", "s3cret"))

	password, err := NewSystemKeyring().Password("api.opensuse.org", "alice")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)

	_, err = NewSystemKeyring().Password("api.opensuse.org", "bob")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestOscrcAdapterMissingFile(t *testing.T) {
	adapter := NewOscrcAdapter(afero.NewMemMapFs(), "/nowhere/oscrc")
	_, err := adapter.DefaultAPIURL()
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
