package handler

import (
	"errors"
	"time"

	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
)

var errEndpointNotAllowed = errors.New("chromedriver_url is not an allowed automation endpoint")

// renderInputs resolves the endpoint and output delay a request will render
// with. A requested endpoint must pass cfg.AllowsEndpoint.
func renderInputs(cfg config.RenderConfig, endpoint string, delayMs *int) (string, time.Duration, error) {
	if endpoint == "" {
		endpoint = cfg.Endpoint()
	} else if !cfg.AllowsEndpoint(endpoint) {
		return "", 0, errEndpointNotAllowed
	}
	delay := cfg.OutputDelay
	if d := models.OutputDelay(delayMs); d != nil {
		delay = *d
	}
	return endpoint, delay, nil
}
