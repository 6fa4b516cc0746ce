package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"packetboat/internal/storage"
	"packetboat/pkg/config"
)

// Defaults for optional settings.
const (
	DefaultProductName = "DNS Service Bypass"
	DefaultDisclaimer  = "This report is generated automatically and is for informational purposes only."
)

// SMTP connection modes.
const (
	SMTPModeStartTLS = "starttls"
	SMTPModeSSL      = "ssl"
	SMTPModePlain    = "plain"
)

// Config is the immutable configuration for one Packetboat process. It is
// built once at startup; no component reads the environment afterwards.
type Config struct {
	// Data location
	Bucket               string
	AttachmentRootPrefix string // ranked-traffic tree, source of truth for tenant discovery
	FragmentRootPrefix   string // summary tree, structurally parallel to the attachment tree
	CadencePrefix        string
	AttachmentSuffix     string
	FragmentSuffix       string

	// Recipient map location (production routing)
	RecipientMapBucket string
	RecipientMapKey    string

	// SMTP relay
	SMTPHosts []string // ordered; empty entries already removed
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	SMTPMode  string
	MailFrom  string

	// Routing behavior
	FallbackRecipients []string
	TestMode           bool
	TestRecipientMap   map[string][]string
	TestDatePartition  string // only honored when TestMode is set

	// Presentation
	ProductName string
	Disclaimer  string

	// Serve mode
	ListenAddr string
	RunWeekday time.Weekday

	// Object store client settings
	S3 storage.S3Config
}

// Load builds the configuration from the environment and validates it.
// Validation failures are fatal before any storage access happens.
func Load() (*Config, error) {
	cfg := &Config{
		Bucket:               config.GetEnv("BUCKET", ""),
		AttachmentRootPrefix: config.GetEnv("ATTACHMENT_ROOT_PREFIX", "dns-bypass-analytic/stat=reports/substat=ranked-traffic/"),
		FragmentRootPrefix:   config.GetEnv("FRAGMENT_ROOT_PREFIX", "dns-bypass-analytic/stat=reports/substat=summary/"),
		CadencePrefix:        config.GetEnv("CADENCE_PREFIX", "cadence=week/"),
		AttachmentSuffix:     config.GetEnv("ATTACHMENT_SUFFIX", ".csv"),
		FragmentSuffix:       config.GetEnv("FRAGMENT_SUFFIX", ".txt"),

		RecipientMapBucket: config.GetEnv("RECIPIENT_MAP_BUCKET", ""),
		RecipientMapKey:    config.GetEnv("RECIPIENT_MAP_KEY", ""),

		SMTPPort: config.GetEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPMode: strings.ToLower(config.GetEnv("SMTP_MODE", SMTPModeStartTLS)),
		MailFrom: config.GetEnv("MAIL_FROM", ""),

		FallbackRecipients: config.GetEnvList("DEFAULT_EMAIL_TO"),
		TestMode:           config.GetEnvBool("TEST_MODE", false),
		TestDatePartition:  config.GetEnv("TEST_DATE_PARTITION", ""),

		ProductName: config.GetEnv("PRODUCT_NAME", DefaultProductName),
		Disclaimer:  config.GetEnv("DISCLAIMER_TEXT", DefaultDisclaimer),

		ListenAddr: config.GetEnv("HTTP_ADDR", ":18080"),

		S3: storage.S3Config{
			Region:    config.GetEnv("AWS_REGION", ""),
			Endpoint:  config.GetEnv("S3_ENDPOINT", ""),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}

	for _, host := range []string{config.GetEnv("SMTP_HOST_1", ""), config.GetEnv("SMTP_HOST_2", "")} {
		if host != "" {
			cfg.SMTPHosts = append(cfg.SMTPHosts, host)
		}
	}

	weekday, err := parseWeekday(config.GetEnv("RUN_WEEKDAY", "monday"))
	if err != nil {
		return nil, err
	}
	cfg.RunWeekday = weekday

	if raw := os.Getenv("TEST_EMAIL_MAP"); strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.TestRecipientMap); err != nil {
			return nil, fmt.Errorf("TEST_EMAIL_MAP is not a valid JSON object of string lists: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("BUCKET is required")
	}
	if c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required")
	}
	if len(c.SMTPHosts) == 0 {
		return fmt.Errorf("set SMTP_HOST_1 and/or SMTP_HOST_2")
	}
	switch c.SMTPMode {
	case SMTPModeStartTLS, SMTPModeSSL, SMTPModePlain:
	default:
		return fmt.Errorf("SMTP_MODE must be one of starttls, ssl, plain (got %q)", c.SMTPMode)
	}
	for name, p := range map[string]string{
		"ATTACHMENT_ROOT_PREFIX": c.AttachmentRootPrefix,
		"FRAGMENT_ROOT_PREFIX":   c.FragmentRootPrefix,
		"CADENCE_PREFIX":         c.CadencePrefix,
	} {
		if !strings.HasSuffix(p, "/") {
			return fmt.Errorf("%s must end with '/'", name)
		}
	}
	if !c.TestMode && (c.RecipientMapBucket == "") != (c.RecipientMapKey == "") {
		return fmt.Errorf("RECIPIENT_MAP_BUCKET and RECIPIENT_MAP_KEY must be set together")
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, error) {
	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	if d, ok := days[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("RUN_WEEKDAY must be a weekday name (got %q)", s)
}
