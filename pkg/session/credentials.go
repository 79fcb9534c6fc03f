// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// EnvPrefix prefixes every environment override, e.g. GUARDXFER_PASSWORD.
const EnvPrefix = "GUARDXFER"

// 🔑 Credentials is the session settings file. Only the fields the chosen
// session type reads need to be set.
type Credentials struct {
	// sftp
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	KeyFile               string        `mapstructure:"key_file"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	InsecureSkipHostCheck bool          `mapstructure:"insecure_skip_host_check"`
	Timeout               time.Duration `mapstructure:"timeout"`

	// local
	Root string `mapstructure:"root"`

	// s3
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// 🏭 LoadCredentials reads the session settings file. Any key can be
// overridden from the environment with the GUARDXFER_ prefix. An empty path
// loads from the environment alone.
func LoadCredentials(path string) (*Credentials, error) {
	v := viper.New()
	v.SetDefault("port", 22)
	v.SetDefault("timeout", "30s")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, Credentials{})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Errorf("reading session config %s: %w", path, err)
		}
	}

	creds := &Credentials{}
	if err := v.Unmarshal(creds); err != nil {
		return nil, errors.Errorf("decoding session config: %w", err)
	}
	return creds, nil
}

// bindEnvs registers every mapstructure key so Unmarshal sees environment
// values for keys absent from the file
func bindEnvs(v *viper.Viper, cfg any) {
	typ := reflect.TypeOf(cfg)
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		_ = v.BindEnv(tag)
	}
}
