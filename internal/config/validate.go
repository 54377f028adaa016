package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return errors.New("service.base_url must be set")
	}
	if c.Service.RequestTimeout <= 0 {
		return errors.New("service.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	if err := ensurePositiveMap(map[string]int{
		"segmenter.min_paragraphs":      c.Segmenter.MinParagraphs,
		"segmenter.min_section_length":  c.Segmenter.MinSectionLength,
		"segmenter.warn_subtask_count":  c.Segmenter.WarnSubtaskCount,
		"segmenter.warn_content_length": c.Segmenter.WarnContentLength,
	}); err != nil {
		return err
	}
	if c.Segmenter.MinParagraphs < 2 {
		return errors.New("segmenter.min_paragraphs must be at least 2")
	}
	return nil
}

func (c *Config) validateExecutor() error {
	if c.Executor.PacingDelayMS < 0 {
		return errors.New("executor.pacing_delay_ms must be >= 0")
	}
	if c.Executor.RetryDelayMS < 0 {
		return errors.New("executor.retry_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.ListCacheTTLSeconds < 0 {
		return errors.New("queue.list_cache_ttl_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
