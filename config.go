package wampc

import (
	"fmt"
	"strings"
	"sync"

	"logur.dev/logur"

	"github.com/spf13/viper"

	"gitlab.com/silenteer-oss/wampc/log"
)

var loggerOnce sync.Once
var defaultLogger logur.Logger

const (
	Realm          = "Wamp.Realm"
	TransportURL   = "Wamp.TransportUrl"
	Serializer     = "Wamp.Serializer"
	AgentString    = "Wamp.Agent"
	AutoReconnect  = "Wamp.AutoReconnect"
	LoggingFormat  = "Logging.Format"
	LoggingLevel   = "Logging.Level"
	LoggingNoColor = "Logging.NoColor"
)

func init() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	viper.SetDefault(LoggingFormat, "logfmt")
	viper.SetDefault(LoggingLevel, "debug")
	viper.SetDefault(LoggingNoColor, false)

	viper.SetDefault(Realm, "realm1")
	viper.SetDefault(TransportURL, "ws://127.0.0.1:8080/ws")
	viper.SetDefault(Serializer, "json")
	viper.SetDefault(AgentString, "wampc-go/1.0.0")
	viper.SetDefault(AutoReconnect, false)
}

// Config is the viper-backed set of defaults NewWebSocketSession and
// NewNatsBridgeSession start from before applying any Option.
type Config struct {
	Realm         string
	TransportURL  string
	Serializer    string
	Agent         string
	AutoReconnect bool
}

// GetConfig reads the current Config from viper, honoring config file
// and environment overrides the way the teacher's config.go does for
// its Nats/Logging sections.
func GetConfig() *Config {
	return &Config{
		Realm:         viper.GetString(Realm),
		TransportURL:  viper.GetString(TransportURL),
		Serializer:    viper.GetString(Serializer),
		Agent:         viper.GetString(AgentString),
		AutoReconnect: viper.GetBool(AutoReconnect),
	}
}

func GetLogConfig() log.Config {
	return log.Config{
		Format:  viper.GetString(LoggingFormat),
		Level:   viper.GetString(LoggingLevel),
		NoColor: viper.GetBool(LoggingNoColor),
	}
}

// GetLogger returns the process-wide default logger, built once from
// viper-sourced Config the same way the teacher memoizes GetLogger().
func GetLogger() logur.Logger {
	loggerOnce.Do(func() {
		defaultLogger = log.NewLogger(GetLogConfig())
	})
	return defaultLogger
}
