package config

const mask = "[redacted]"

// Redacted returns a copy safe for startup logging: every credential field
// is masked when set, so the log still shows which secrets are present.
func (c Config) Redacted() Config {
	out := c
	redact(&out.Broker.AccessToken)
	redact(&out.Signal.Token)
	redact(&out.Signal.Password)
	redact(&out.Redis.Password)
	redact(&out.Postgres.Password)
	redact(&out.S3.SecretAccessKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhook)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = mask
	}
}
