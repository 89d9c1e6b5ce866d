package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	JwtSecret            string        `env:"JWT_SECRET,required=true"`
	JwtIssuer            string        `env:"JWT_ISSUER,default=tab-live"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	EventBufferSize      int           `env:"EVENT_BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=1m"`
	EvictTopology        bool          `env:"EVICT_TOPOLOGY_ON_LAST_CLOSE,default=false"`
	DebugPort            int           `env:"DEBUG_PORT,default=0"`
	ActivityFeedSize     int           `env:"ACTIVITY_FEED_SIZE,default=200"`
}
