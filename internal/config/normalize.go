package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeService()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAuth() {
	c.Auth.OwnerID = strings.TrimSpace(c.Auth.OwnerID)
	if c.Auth.OwnerID == "" {
		c.Auth.OwnerID = strings.TrimSpace(os.Getenv("PROMPTQ_OWNER_ID"))
	}
}

func (c *Config) normalizeService() {
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	c.Service.APIKey = strings.TrimSpace(c.Service.APIKey)
	if c.Service.APIKey == "" {
		c.Service.APIKey = strings.TrimSpace(os.Getenv("PROMPTQ_API_KEY"))
	}
	if strings.TrimSpace(c.Service.DefaultBranch) == "" {
		c.Service.DefaultBranch = defaultBranch
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
