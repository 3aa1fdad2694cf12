// Package config holds the environment overlay shared by service configs.
// File based settings are decoded by each service; this package only layers
// .env files and process environment variables on top.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Env resolves dotted config keys against prefixed environment variables,
// e.g. key "stripe.secret_key" with prefix "billing" reads BILLING_STRIPE_SECRET_KEY.
type Env struct {
	v *viper.Viper
}

// NewEnv creates an overlay for prefix.
func NewEnv(prefix string) *Env {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Env{v: v}
}

func (e *Env) lookup(key string) bool {
	_ = e.v.BindEnv(key)
	return e.v.IsSet(key)
}

// String overrides dst when the variable for key is set.
func (e *Env) String(key string, dst *string) {
	if e.lookup(key) {
		*dst = e.v.GetString(key)
	}
}

// Int overrides dst when the variable for key is set.
func (e *Env) Int(key string, dst *int) {
	if e.lookup(key) {
		*dst = e.v.GetInt(key)
	}
}

// Bool overrides dst when the variable for key is set.
func (e *Env) Bool(key string, dst *bool) {
	if e.lookup(key) {
		*dst = e.v.GetBool(key)
	}
}

// Duration overrides dst when the variable for key is set. Values use
// time.ParseDuration syntax.
func (e *Env) Duration(key string, dst *time.Duration) {
	if e.lookup(key) {
		*dst = e.v.GetDuration(key)
	}
}
