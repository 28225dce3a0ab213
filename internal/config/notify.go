package config

import (
	"fmt"
	"os"
)

const (
	EnvNotifySlackToken   = "ARBITER_NOTIFY_SLACK_TOKEN"
	EnvNotifySlackChannel = "ARBITER_NOTIFY_SLACK_CHANNEL"
	EnvNotifySlackAPIURL  = "ARBITER_NOTIFY_SLACK_API_URL"
	EnvNotifyReviewURL    = "ARBITER_NOTIFY_REVIEW_URL"
)

// NotifyConfig configures review-queue notifications. Notifications are
// disabled when no Slack token is set.
type NotifyConfig struct {
	SlackToken   string `toml:"slack_token"`
	SlackChannel string `toml:"slack_channel"`
	SlackAPIURL  string `toml:"slack_api_url"`
	ReviewURL    string `toml:"review_url"`
}

// Enabled reports whether Slack notifications are configured.
func (c *NotifyConfig) Enabled() bool {
	return c.SlackToken != ""
}

// Finalize applies environment overrides and validation.
func (c *NotifyConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *NotifyConfig) Merge(overlay *NotifyConfig) {
	if overlay.SlackToken != "" {
		c.SlackToken = overlay.SlackToken
	}
	if overlay.SlackChannel != "" {
		c.SlackChannel = overlay.SlackChannel
	}
	if overlay.SlackAPIURL != "" {
		c.SlackAPIURL = overlay.SlackAPIURL
	}
	if overlay.ReviewURL != "" {
		c.ReviewURL = overlay.ReviewURL
	}
}

func (c *NotifyConfig) loadEnv() {
	if v := os.Getenv(EnvNotifySlackToken); v != "" {
		c.SlackToken = v
	}
	if v := os.Getenv(EnvNotifySlackChannel); v != "" {
		c.SlackChannel = v
	}
	if v := os.Getenv(EnvNotifySlackAPIURL); v != "" {
		c.SlackAPIURL = v
	}
	if v := os.Getenv(EnvNotifyReviewURL); v != "" {
		c.ReviewURL = v
	}
}

func (c *NotifyConfig) validate() error {
	if c.Enabled() && c.SlackChannel == "" {
		return fmt.Errorf("slack_channel required when slack_token is set")
	}
	return nil
}
