package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"reelscan/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	client *http.Client
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) baseURL() string {
	if c.apiFlag != nil {
		if bind := strings.TrimSpace(*c.apiFlag); bind != "" {
			return "http://" + bind
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return "http://" + cfg.Paths.APIBind
	}
	return "http://" + config.Default().Paths.APIBind
}

// getJSON issues a GET against the daemon API and decodes the response body
// into target. Non-2xx responses surface the gateway's error message.
func (c *commandContext) getJSON(path string, target any) error {
	resp, err := c.client.Get(c.baseURL() + path)
	if err != nil {
		return wrapAPIError(err, c.baseURL())
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, target)
}

// postJSON issues a POST with a JSON body and decodes the response into target.
func (c *commandContext) postJSON(path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.client.Post(c.baseURL()+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return wrapAPIError(err, c.baseURL())
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, target)
}

func decodeAPIResponse(resp *http.Response, target any) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon returned HTTP %d", resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapAPIError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `reelscand`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
