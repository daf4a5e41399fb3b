package app

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"obsctl/internal/adapters"
	"obsctl/internal/ports"
)

// Service runs the obsctl use cases. OBS and Credentials are optional: when
// nil they are built from the ConnectionRequest of each call.
type Service struct {
	OBS         ports.OBSPort
	Credentials ports.CredentialsPort
	Fs          afero.Fs
	Clock       func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
	Dial        func(cfg adapters.OBSConfig) (ports.OBSPort, error)
}

func NewService() Service {
	return Service{
		Fs:    afero.NewOsFs(),
		Clock: time.Now,
		Sleep: sleepContext,
		Dial:  dialOBS,
	}
}

func dialOBS(cfg adapters.OBSConfig) (ports.OBSPort, error) {
	client, err := adapters.NewOBSClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s Service) fs() afero.Fs {
	if s.Fs == nil {
		return afero.NewOsFs()
	}
	return s.Fs
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s Service) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return s.Sleep(ctx, d)
}
