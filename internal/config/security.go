package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SecurityConfig groups the tunables operators adjust without a redeploy:
// verification-code windows, login rate limits and lookup cache sizes.
type SecurityConfig struct {
	VerificationCodeTimeoutMinutes int `mapstructure:"verificationCodeTimeoutMinutes"`
	VerificationCodeResendMinutes  int `mapstructure:"verificationCodeResendMinutes"`

	LoginAttemptsPerIPPerMinute      float64 `mapstructure:"loginAttemptsPerIpPerMinute"`
	LoginAttemptsPerIPBurst          int     `mapstructure:"loginAttemptsPerIpBurst"`
	LoginAttemptsPerAccountPerMinute float64 `mapstructure:"loginAttemptsPerAccountPerMinute"`
	LoginAttemptsPerAccountBurst     int     `mapstructure:"loginAttemptsPerAccountBurst"`

	GeolocationCacheSize int `mapstructure:"geolocationCacheSize"`
	APIKeyCacheSize      int `mapstructure:"apiKeyCacheSize"`
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		VerificationCodeTimeoutMinutes:   10,
		VerificationCodeResendMinutes:    1,
		LoginAttemptsPerIPPerMinute:      20,
		LoginAttemptsPerIPBurst:          20,
		LoginAttemptsPerAccountPerMinute: 5,
		LoginAttemptsPerAccountBurst:     5,
		GeolocationCacheSize:             1000,
		APIKeyCacheSize:                  500,
	}
}

type SecurityConfigHolder struct {
	current atomic.Value // holds SecurityConfig
}

func NewSecurityConfigHolder() (*SecurityConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("security")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/passage/config") // Volume-mounted config
	v.AddConfigPath("/etc/passage")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("PASSAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSecurityConfig()
	v.SetDefault("security.verificationCodeTimeoutMinutes", defaults.VerificationCodeTimeoutMinutes)
	v.SetDefault("security.verificationCodeResendMinutes", defaults.VerificationCodeResendMinutes)
	v.SetDefault("security.loginAttemptsPerIpPerMinute", defaults.LoginAttemptsPerIPPerMinute)
	v.SetDefault("security.loginAttemptsPerIpBurst", defaults.LoginAttemptsPerIPBurst)
	v.SetDefault("security.loginAttemptsPerAccountPerMinute", defaults.LoginAttemptsPerAccountPerMinute)
	v.SetDefault("security.loginAttemptsPerAccountBurst", defaults.LoginAttemptsPerAccountBurst)
	v.SetDefault("security.geolocationCacheSize", defaults.GeolocationCacheSize)
	v.SetDefault("security.apiKeyCacheSize", defaults.APIKeyCacheSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg SecurityConfig
	if err := v.UnmarshalKey("security", &cfg); err != nil {
		return nil, err
	}
	if err := validateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SecurityConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SecurityConfig
		if err := v.UnmarshalKey("security", &updated); err != nil {
			log.Printf("[security-config] reload failed: %v", err)
			return
		}
		if err := validateSecurityConfig(updated); err != nil {
			log.Printf("[security-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[security-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SecurityConfigHolder) Get() SecurityConfig {
	return h.current.Load().(SecurityConfig)
}

// NewStaticSecurityConfigHolder pins a holder to a fixed config, with
// no file watching. Tests use it to shrink windows and thresholds.
func NewStaticSecurityConfigHolder(cfg SecurityConfig) *SecurityConfigHolder {
	holder := &SecurityConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateSecurityConfig(cfg SecurityConfig) error {
	if cfg.VerificationCodeTimeoutMinutes <= 0 {
		return errors.New("security.verificationCodeTimeoutMinutes must be positive")
	}
	if cfg.VerificationCodeResendMinutes <= 0 || cfg.VerificationCodeResendMinutes >= cfg.VerificationCodeTimeoutMinutes {
		return errors.New("security.verificationCodeResendMinutes must be positive and below the timeout")
	}
	if cfg.LoginAttemptsPerIPPerMinute <= 0 || cfg.LoginAttemptsPerAccountPerMinute <= 0 {
		return errors.New("security login attempt rates must be positive")
	}
	return nil
}
