// Package config loads tabletd's runtime configuration via viper from
// built-in defaults, a TOML file, and environment variables (TABLETD_
// prefixed), in that increasing order of priority.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved, validated configuration for one
// tabletd process.
type Config struct {
	Endpoint string `mapstructure:"endpoint"`
	UseName  bool   `mapstructure:"use_name"`

	DBRootPaths         []string `mapstructure:"db_root_path"`
	RecycleBinRootPaths []string `mapstructure:"recycle_bin_root_path"`

	GCIntervalMinutes int `mapstructure:"gc_interval"`
	GCPoolSize        int `mapstructure:"gc_pool_size"`
	TaskPoolSize      int `mapstructure:"task_pool_size"`
	IOPoolSize        int `mapstructure:"io_pool_size"`
	SnapshotPoolSize  int `mapstructure:"snapshot_pool_size"`

	BinlogSingleFileMaxSize  int64 `mapstructure:"binlog_single_file_max_size"`
	BinlogDeleteInterval     int   `mapstructure:"binlog_delete_interval"` // minutes
	BinlogSyncToDiskInterval int   `mapstructure:"binlog_sync_to_disk_interval"` // seconds
	BinlogNotifyOnPut        bool  `mapstructure:"binlog_notify_on_put"`

	MakeSnapshotThresholdOffset uint64 `mapstructure:"make_snapshot_threshold_offset"`
	MakeSnapshotTime            int    `mapstructure:"make_snapshot_time"` // hour 0-23
	MakeSnapshotCheckInterval   int    `mapstructure:"make_snapshot_check_interval"` // minutes
	MakeSnapshotOfflineInterval int    `mapstructure:"make_snapshot_offline_interval"` // minutes

	SnapshotCompression string `mapstructure:"snapshot_compression"` // off, zlib, snappy
	FileCompression     string `mapstructure:"file_compression"`     // off, zlib, lz4

	AbsoluteTTLMaxMinutes uint64 `mapstructure:"absolute_ttl_max"`
	LatestTTLMax          uint64 `mapstructure:"latest_ttl_max"`
	MaxTraverseCnt        uint32 `mapstructure:"max_traverse_cnt"`
	ScanMaxBytesSize      int64  `mapstructure:"scan_max_bytes_size"`
	ScanReserveSize       int64  `mapstructure:"scan_reserve_size"`

	RecycleBinEnabled     bool `mapstructure:"recycle_bin_enabled"`
	RecycleTTLMinutes     int  `mapstructure:"recycle_ttl"`
	PutSlowLogThreshold   int  `mapstructure:"put_slow_log_threshold"`   // milliseconds
	QuerySlowLogThreshold int  `mapstructure:"query_slow_log_threshold"` // milliseconds

	ZkCluster                string `mapstructure:"zk_cluster"`
	ZkRootPath               string `mapstructure:"zk_root_path"`
	ZkSessionTimeout         int    `mapstructure:"zk_session_timeout"`          // milliseconds
	ZkKeepAliveCheckInterval int    `mapstructure:"zk_keep_alive_check_interval"` // milliseconds

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// EnvPrefix is the prefix applied to every environment-variable
// override, e.g. TABLETD_ENDPOINT.
const EnvPrefix = "TABLETD"

func defaults(v *viper.Viper) {
	v.SetDefault("endpoint", "0.0.0.0:9527")
	v.SetDefault("use_name", false)
	v.SetDefault("db_root_path", []string{"/var/lib/tabletd/db"})
	v.SetDefault("recycle_bin_root_path", []string{"/var/lib/tabletd/recycle"})

	v.SetDefault("gc_interval", 60)
	v.SetDefault("gc_pool_size", 4)
	v.SetDefault("task_pool_size", 8)
	v.SetDefault("io_pool_size", 8)
	v.SetDefault("snapshot_pool_size", 2)

	v.SetDefault("binlog_single_file_max_size", int64(1<<28)) // 256MiB
	v.SetDefault("binlog_delete_interval", 60)
	v.SetDefault("binlog_sync_to_disk_interval", 10)
	v.SetDefault("binlog_notify_on_put", true)

	v.SetDefault("make_snapshot_threshold_offset", uint64(100000))
	v.SetDefault("make_snapshot_time", 2)
	v.SetDefault("make_snapshot_check_interval", 1)
	v.SetDefault("make_snapshot_offline_interval", 24*60)

	v.SetDefault("snapshot_compression", "off")
	v.SetDefault("file_compression", "off")

	v.SetDefault("absolute_ttl_max", uint64(60*24*30)) // 30 days, in minutes
	v.SetDefault("latest_ttl_max", uint64(1000))
	v.SetDefault("max_traverse_cnt", uint32(1000))
	v.SetDefault("scan_max_bytes_size", int64(2<<20))
	v.SetDefault("scan_reserve_size", int64(1<<20))

	v.SetDefault("recycle_bin_enabled", true)
	v.SetDefault("recycle_ttl", 60*24)
	v.SetDefault("put_slow_log_threshold", 1000)
	v.SetDefault("query_slow_log_threshold", 1000)

	v.SetDefault("zk_cluster", "")
	v.SetDefault("zk_root_path", "/tabletd")
	v.SetDefault("zk_session_timeout", 10000)
	v.SetDefault("zk_keep_alive_check_interval", 1000)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Load reads configuration from path (a TOML file, skipped if empty or
// absent), then TABLETD_-prefixed environment variables, over the
// defaults above.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BinlogSyncInterval returns the configured fsync interval as a Duration.
func (c *Config) BinlogSyncInterval() time.Duration {
	return time.Duration(c.BinlogSyncToDiskInterval) * time.Second
}

// GCInterval returns the configured GC sweep interval as a Duration.
func (c *Config) GCInterval() time.Duration {
	return time.Duration(c.GCIntervalMinutes) * time.Minute
}

// RecycleTTL returns the configured recycle-bin purge age as a Duration.
func (c *Config) RecycleTTL() time.Duration {
	return time.Duration(c.RecycleTTLMinutes) * time.Minute
}
