package main

import (
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Options holds the runtime options of the service.  These are fixed at
// startup; the operator settings edited over HTTP live in the settings file
// instead.
type Options struct {
	// HTTP holds the settings page listener options.
	HTTP HTTPOptions `mapstructure:"http"`
	// GPIO names the e-stop and status pins.
	GPIO GPIOOptions `mapstructure:"gpio"`
	// Status controls the blink loop.
	Status StatusOptions `mapstructure:"status"`
	// Settings locates the operator settings file.
	Settings SettingsOptions `mapstructure:"settings"`
	// Log holds configuration for the logger and event journal.
	Log LogOptions `mapstructure:"log"`
	// Alerts selects the trip alert handlers.
	Alerts AlertOptions `mapstructure:"alerts"`
}

// HTTPOptions configures the settings page listener.
type HTTPOptions struct {
	Addr         string        `mapstructure:"addr" default:":80"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"10s"`
	MaxRequest   int           `mapstructure:"max_request" default:"4096"`
}

// GPIOOptions names pins the way periph's gpioreg does, e.g. "GPIO17".
type GPIOOptions struct {
	EStopPin  string        `mapstructure:"estop_pin" default:"GPIO17"`
	StatusPin string        `mapstructure:"status_pin" default:"GPIO18"`
	EdgePoll  time.Duration `mapstructure:"edge_poll" default:"250ms"`
}

// StatusOptions configures the status LED blink.
type StatusOptions struct {
	Interval time.Duration `mapstructure:"interval" default:"500ms"`
}

// SettingsOptions locates the key=value settings file.
type SettingsOptions struct {
	Path string `mapstructure:"path" default:"Freaky_settings.txt"`
}

// LogOptions configures zap and the event journal.
type LogOptions struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" default:"info"`
	// Format is console or json.
	Format string `mapstructure:"format" default:"console"`
	// EventFile is the safety event journal; empty disables it.
	EventFile string `mapstructure:"event_file" default:"estop_events.log"`
}

// AlertOptions selects trip alert handlers.
type AlertOptions struct {
	Arena        bool          `mapstructure:"arena" default:"true"`
	ArenaTimeout time.Duration `mapstructure:"arena_timeout" default:"2s"`
	Email        EmailOptions  `mapstructure:"email"`
}

// EmailOptions configures the SMTP alert.  It is enabled when both server and
// recipient are set.
type EmailOptions struct {
	SMTPServer string `mapstructure:"smtp_server" default:""`
	SMTPPort   int    `mapstructure:"smtp_port" default:"587"`
	Username   string `mapstructure:"username" default:""`
	Password   string `mapstructure:"password" default:""`
	From       string `mapstructure:"from" default:""`
	To         string `mapstructure:"to" default:""`
	Subject    string `mapstructure:"subject" default:""`
}

// envPrefix namespaces environment variables, e.g. ESTOP_HTTP_ADDR.
const envPrefix = "ESTOP"

// LoadOptions loads options from environment variables and an optional .env
// file in dir.
func LoadOptions(dir string) (*Options, error) {
	envPath := dir + "/.env"
	if dir == "" || dir == "." {
		envPath = ".env"
	}
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Load(envPath)

	v := viper.New()
	bindValues(v, Options{}, "")

	// Map environment variables to nested keys (e.g. ESTOP_HTTP_ADDR -> http.addr)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// time.Duration is not a struct, so only nested option groups recurse.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
