package constants

// Default server configuration values
const (
	DefaultServerPort            = 8081
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry and backoff values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultBackoffInitialMs      = 500
	DefaultDatabaseRetryAttempts = 3
)

// Default directory service values
const (
	DefaultDirectoryTimeoutSec = 10
	// One initial attempt plus a single retry, applied to 5xx responses only.
	DirectoryMaxAttempts = 2
)

// Identity resolution values
const (
	DefaultPositiveResolutionTTLHours   = 24
	DefaultNegativeResolutionTTLMinutes = 10
	ResolutionScanMaxDepth              = 6
	PhoneMinDigits                      = 8
	PhoneMaxDigits                      = 15
)

// Provider address suffixes
const (
	MaskedAddressSuffix    = "@lid"
	PhoneAddressSuffix     = "@s.whatsapp.net"
	GroupAddressSuffix     = "@g.us"
	BroadcastAddressSuffix = "@broadcast"
)

// Default data retention
const (
	DefaultRetentionDays = 90
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)

// Encryption salts. The derived key still depends on the secret taken from
// the environment; these only namespace the derivation.
const (
	EncryptionSalt       = "clinicdesk-db-encryption-v1"
	EncryptionLookupSalt = "clinicdesk-lookup-v1"
)
