package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("BUCKET", "reports-bucket")
	t.Setenv("MAIL_FROM", "reports@example.com")
	t.Setenv("SMTP_HOST_1", "smtp1.example.com")
	t.Setenv("SMTP_HOST_2", "")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("TEST_EMAIL_MAP", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"smtp1.example.com"}, cfg.SMTPHosts)
	require.Equal(t, 587, cfg.SMTPPort)
	require.Equal(t, SMTPModeStartTLS, cfg.SMTPMode)
	require.Equal(t, ".csv", cfg.AttachmentSuffix)
	require.Equal(t, ".txt", cfg.FragmentSuffix)
	require.Equal(t, time.Monday, cfg.RunWeekday)
	require.Equal(t, DefaultProductName, cfg.ProductName)
}

func TestLoadRequiresMailFrom(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAIL_FROM", "")

	_, err := Load()
	require.ErrorContains(t, err, "MAIL_FROM")
}

func TestLoadRequiresSMTPHost(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_HOST_1", "")
	t.Setenv("SMTP_HOST_2", "")

	_, err := Load()
	require.ErrorContains(t, err, "SMTP_HOST_1")
}

func TestLoadRejectsPrefixWithoutSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CADENCE_PREFIX", "cadence=week")

	_, err := Load()
	require.ErrorContains(t, err, "CADENCE_PREFIX")
}

func TestLoadRejectsBadSMTPMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_MODE", "tls13")

	_, err := Load()
	require.ErrorContains(t, err, "SMTP_MODE")
}

func TestLoadRejectsMalformedTestMap(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TEST_EMAIL_MAP", "{not json")

	_, err := Load()
	require.ErrorContains(t, err, "TEST_EMAIL_MAP")
}

func TestLoadParsesTestMap(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TEST_EMAIL_MAP", `{"tenant=wholesales":["dl@example.com"]}`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"dl@example.com"}, cfg.TestRecipientMap["tenant=wholesales"])
}

func TestLoadRequiresRecipientMapPairInProd(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TEST_MODE", "false")
	t.Setenv("RECIPIENT_MAP_BUCKET", "maps")
	t.Setenv("RECIPIENT_MAP_KEY", "")

	_, err := Load()
	require.ErrorContains(t, err, "RECIPIENT_MAP_KEY")
}
