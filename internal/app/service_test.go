package app

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"obsctl/internal/obsmock"
)

func newTestService(t *testing.T) (*obsmock.Mock, Service, ConnectionRequest) {
	t.Helper()
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	svc := NewService()
	svc.Fs = afero.NewMemMapFs()
	svc.Clock = func() time.Time { return time.Unix(1700000000, 0) }
	svc.Sleep = func(context.Context, time.Duration) error { return nil }
	conn := ConnectionRequest{
		APIURL:     mock.URL(),
		Username:   mock.Username(),
		Password:   mock.Password(),
		Timeout:    5 * time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
	}
	return mock, svc, conn
}
