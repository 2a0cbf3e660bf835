// Package config loads legendboard configuration.
//
// Every concern has its own struct with cleanenv tags, collected in Config:
//
//	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
//	if err != nil {
//	    slog.Error("invalid configuration", "err", err)
//	    os.Exit(1)
//	}
//
// Durations accept ISO8601 ("P7D", "PT15M") as well as Go syntax ("15m").
// When a YAML file is given, environment variables still win.
//
// # Environment Variables
//
//   - APP_ENV, APP_BASE_URL, APP_PREFIX
//   - JWT_SECRET (required), JWT_ISSUER, SESSION_EXPIRY, COOKIE_SECURE
//   - LB_PG_HOST, LB_PG_PORT, LB_PG_DATABASE, LB_PG_USER, LB_PG_PASSWORD, MIGRATE_ON_START
//   - REDIS_URL
//   - EMAIL_HOST, EMAIL_PORT, EMAIL_USERNAME, EMAIL_PASSWORD, EMAIL_FROM, EMAIL_TLS, EMAIL_SEND_TIMEOUT
//   - GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_CALLBACK_URL, GOOGLE_STATE_EXPIRY
//   - PASSWORD_HASHER, BCRYPT_COST, PASSWORD_MIN_LENGTH, RESET_TOKEN_EXPIRY
//   - RATELIMIT_ENABLED, RATELIMIT_{LOGIN,REGISTER,FORGOT_PASSWORD,FEDERATED}_{MAX,WINDOW}
package config
