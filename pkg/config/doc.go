// Package config loads ssogate configuration from SSOGATE_* environment
// variables.
//
// # Server
//
//	SSOGATE_HOST, SSOGATE_PORT, SSOGATE_HEALTH_PORT
//	SSOGATE_READ_TIMEOUT, SSOGATE_WRITE_TIMEOUT, SSOGATE_IDLE_TIMEOUT
//	SSOGATE_SHUTDOWN_TIMEOUT
//
// # Organization directory
//
//	SSOGATE_DIRECTORY             postgres (default), sqlite or file
//	SSOGATE_DIRECTORY_DSN         connection string for postgres and sqlite
//	SSOGATE_DIRECTORY_MAX_CONNS
//	SSOGATE_DIRECTORY_AUTO_MIGRATE
//	SSOGATE_DIRECTORY_FILE        YAML file for the file backend
//	SSOGATE_DIRECTORY_WATCH       reload the file on change (default true)
//	SSOGATE_AUDIT_SCHEDULE        cron expression for the duplicate domain audit
//
// # Cache
//
//	SSOGATE_CACHE_ENABLED, SSOGATE_CACHE_SIZE
//	SSOGATE_CACHE_TTL, SSOGATE_CACHE_NEGATIVE_TTL (0 disables negative caching)
//	SSOGATE_REDIS_URL             optional shared tier
//
// # Credential store and routing
//
//	SSOGATE_CREDSTORE_URL, SSOGATE_CREDSTORE_API_KEY, SSOGATE_CREDSTORE_ACCESS_TOKEN
//	SSOGATE_SSO_REDIRECT_TO
//	SSOGATE_LOOKUP_TIMEOUT (3s), SSOGATE_CREDENTIAL_TIMEOUT (5s)
//	SSOGATE_NORMALIZE_DOMAINS (true)
//
// # Rate limiting
//
//	SSOGATE_RATE_LIMIT_ENABLED (true)
//	SSOGATE_RATE_LIMIT_REQUESTS (30), SSOGATE_RATE_LIMIT_WINDOW (1m), SSOGATE_RATE_LIMIT_BURST (10)
//	SSOGATE_TRUSTED_PROXIES (comma-separated addresses or CIDRs; forwarding headers are ignored unless the peer is listed)
//
// # Observability
//
//	SSOGATE_LOG_LEVEL
//	SSOGATE_OTEL_ENABLED, SSOGATE_OTEL_ENDPOINT, SSOGATE_OTEL_SERVICE_NAME,
//	SSOGATE_OTEL_SERVICE_VERSION, SSOGATE_OTEL_INSECURE
//	SSOGATE_OTEL_SAMPLE_RATIO     share of root traces kept (default 1)
//	SSOGATE_ENV                   deployment environment resource attribute
package config
