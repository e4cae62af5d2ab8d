package hue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amimof/huego"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/credentials"
)

const linkButtonNotPressed = 101

type pairer interface {
	CreateUser(deviceType string) (string, error)
}

// Pair waits until the link button of the bridge was pressed and stores the
// created user in the credential store. If there is no credential store the
// returned credentials have to be put into the configuration.
func Pair(ctx context.Context, conf Configuration, store credentials.Store) (credentials.Credentials, bool, error) {
	host := conf.Bridge
	if host == "" {
		b, err := huego.Discover()
		if err != nil {
			return credentials.Credentials{}, false, fmt.Errorf("cannot discover hue bridge: %w", err)
		}
		host = b.Host
	}

	return pairWith(ctx, host, huego.New(host, ""), store, time.Second)
}

func pairWith(ctx context.Context, host string, p pairer, store credentials.Store, retry time.Duration) (credentials.Credentials, bool, error) {
	log.With("bridge", host).
		Info("Wait for hue link button been pressed...")

	for {
		user, err := p.CreateUser(appName)
		var apiErr *huego.APIError
		if errors.As(err, &apiErr) && apiErr.Type == linkButtonNotPressed {
			select {
			case <-ctx.Done():
				return credentials.Credentials{}, false, ctx.Err()
			case <-time.After(retry):
			}
			continue
		}
		if err != nil {
			return credentials.Credentials{}, false, fmt.Errorf("was not able to pair with %s: %w", host, err)
		}

		v, _, err := store.Read()
		if err != nil {
			log.WithError(err).
				Warn("Cannot read existing credentials. They will be replaced.")
			v = credentials.Credentials{}
		}
		v.HueBridge = host
		v.HueUser = user

		supported, err := store.Write(v)
		if err != nil {
			return v, false, err
		}

		log.With("bridge", host).
			Info("Successful paired.")
		return v, supported, nil
	}
}
