package app

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsctl/internal/types"
)

type stubCredentials struct {
	defaultURL string
	creds      map[string]types.Credentials
}

func (s stubCredentials) DefaultAPIURL() (string, error) {
	if s.defaultURL == "" {
		return "", errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("no oscrc")
	}
	return s.defaultURL, nil
}

func (s stubCredentials) Credentials(apiURL string) (types.Credentials, error) {
	creds, ok := s.creds[apiURL]
	if !ok {
		return types.Credentials{}, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("unknown service " + apiURL)
	}
	return creds, nil
}

func TestResolveConnection(t *testing.T) {
	stored := stubCredentials{
		defaultURL: "https://api.opensuse.org",
		creds: map[string]types.Credentials{
			"https://api.opensuse.org": {APIURL: "https://api.opensuse.org", Username: "alice", Password: "stored"},
			"https://obs.example.com":  {APIURL: "https://obs.example.com", Username: "bob", Password: "other"},
		},
	}
	tests := []struct {
		name     string
		req      ConnectionRequest
		wantURL  string
		wantUser string
		wantPass string
		wantErr  bool
	}{
		{
			name:     "explicit everything",
			req:      ConnectionRequest{APIURL: "https://obs.local/", Username: "carol", Password: "pw"},
			wantURL:  "https://obs.local",
			wantUser: "carol",
			wantPass: "pw",
		},
		{
			name:     "default service from oscrc",
			req:      ConnectionRequest{},
			wantURL:  "https://api.opensuse.org",
			wantUser: "alice",
			wantPass: "stored",
		},
		{
			name:     "explicit url with stored credentials",
			req:      ConnectionRequest{APIURL: "https://obs.example.com"},
			wantURL:  "https://obs.example.com",
			wantUser: "bob",
			wantPass: "other",
		},
		{
			name:     "explicit user on default url",
			req:      ConnectionRequest{Username: "dave", Password: "pw"},
			wantURL:  "https://api.opensuse.org",
			wantUser: "dave",
			wantPass: "pw",
		},
		{name: "user without password", req: ConnectionRequest{Username: "dave"}, wantErr: true},
		{name: "password without user", req: ConnectionRequest{Password: "pw"}, wantErr: true},
		{name: "unknown service", req: ConnectionRequest{APIURL: "https://nowhere.example.com"}, wantErr: true},
	}
	svc := Service{Credentials: stored}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := svc.ResolveConnection(t.Context(), tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.BaseURL)
			assert.Equal(t, tt.wantUser, cfg.Username)
			assert.Equal(t, tt.wantPass, cfg.Password)
		})
	}
}

func TestResolveConnectionRequiresSomeURL(t *testing.T) {
	svc := Service{Credentials: stubCredentials{}}
	_, err := svc.ResolveConnection(t.Context(), ConnectionRequest{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestResolveConnectionReadsOscrc(t *testing.T) {
	fs := afero.NewMemMapFs()
	rc := "[general]\napiurl = https://obs.example.com\n\n[https://obs.example.com]\nuser = bob\npass = secret\n"
	require.NoError(t, afero.WriteFile(fs, "/etc/obsctl/oscrc", []byte(rc), 0o600))

	svc := Service{Fs: fs}
	cfg, err := svc.ResolveConnection(t.Context(), ConnectionRequest{OscrcPath: "/etc/obsctl/oscrc", Retries: 2})
	require.NoError(t, err)
	assert.Equal(t, "https://obs.example.com", cfg.BaseURL)
	assert.Equal(t, "bob", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 2, cfg.Retries)
}

func TestConnectDialsResolvedClient(t *testing.T) {
	mock, svc, conn := newTestService(t)
	mock.AddProject("home:alice")
	obs, err := svc.Connect(t.Context(), conn)
	require.NoError(t, err)
	assert.Equal(t, mock.URL(), obs.BaseURL())

	projects, err := svc.ListProjects(t.Context(), conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"home:alice"}, projects)
}
