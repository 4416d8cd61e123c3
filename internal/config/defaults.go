// ABOUTME: Centralized configuration defaults for xvault
// ABOUTME: Contains magic numbers and hardcoded values for display, storage, and the local API

package config

import "time"

// Environment
const (
	EnvPrefix = "XVAULT"
)

// HTTP settings
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultListen      = "127.0.0.1:7420"
	MaxRequestBody     = 64 << 20
)

// Display settings
const (
	DefaultListLimit = 20
	SeparatorWidth   = 60
	PreviewLength    = 140
	DateFormatShort  = "02 Jan 06 15:04 MST"
	DateFormatLong   = "Mon, 02 Jan 2006 15:04 MST"
)

// Storage settings
const (
	DefaultDBFilename = "xvault.db"
	DefaultDirPerms   = 0755
	DefaultLogLevel   = "info"
)

// Backup settings
const (
	DefaultBackupKeep = 7
	BackupFilePrefix  = "xvault-backup-"
	BackupFileSuffix  = ".json"
	BackupDateLayout  = "2006-01-02"
)
