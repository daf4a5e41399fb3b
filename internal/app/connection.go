package app

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"obsctl/internal/adapters"
	"obsctl/internal/ports"
	"obsctl/internal/shared"
)

// ResolveConnection turns flags and the oscrc into a client configuration.
// Explicit user and password win over stored credentials; the api url falls
// back to the oscrc default.
func (s Service) ResolveConnection(ctx context.Context, req ConnectionRequest) (adapters.OBSConfig, error) {
	username := strings.TrimSpace(req.Username)
	if (username == "") != (req.Password == "") {
		return adapters.OBSConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--user and --pass must be given together")
	}
	apiURL := shared.NormalizeAPIURL(req.APIURL)
	password := req.Password
	if apiURL == "" || username == "" {
		credentials := s.credentials(req)
		if apiURL == "" {
			defaultURL, err := credentials.DefaultAPIURL()
			if err != nil {
				return adapters.OBSConfig{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("api url is required: pass --apiurl or configure an oscrc").
					WithCause(err)
			}
			apiURL = defaultURL
		}
		if username == "" {
			creds, err := credentials.Credentials(apiURL)
			if err != nil {
				return adapters.OBSConfig{}, err
			}
			apiURL = creds.APIURL
			username = creds.Username
			password = creds.Password
		}
	}
	assert.NotEmpty(ctx, apiURL, "api url must be resolved")
	cfg := adapters.OBSConfig{
		BaseURL:           apiURL,
		Username:          username,
		Password:          password,
		Timeout:           req.Timeout,
		Retries:           req.Retries,
		RetryDelay:        req.RetryDelay,
		RequestsPerSecond: req.RequestsPerSecond,
	}
	log.Debug().Str("apiurl", cfg.BaseURL).Str("user", cfg.Username).Msg("resolved connection")
	return cfg, nil
}

func (s Service) credentials(req ConnectionRequest) ports.CredentialsPort {
	if s.Credentials != nil {
		return s.Credentials
	}
	return adapters.NewOscrcAdapter(s.fs(), req.OscrcPath)
}

// Connect returns the configured OBS port, dialing a new client when the
// service has none.
func (s Service) Connect(ctx context.Context, req ConnectionRequest) (ports.OBSPort, error) {
	if s.OBS != nil {
		return s.OBS, nil
	}
	cfg, err := s.ResolveConnection(ctx, req)
	if err != nil {
		return nil, err
	}
	dial := s.Dial
	if dial == nil {
		dial = dialOBS
	}
	return dial(cfg)
}
