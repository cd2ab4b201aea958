// Copyright 2023 StreamNative, Inc.
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

package server

import (
	"reflect"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/subspace/shardstore/server/kv"
	"github.com/subspace/shardstore/server/tracker"
)

type Config struct {
	// Host identity, defaults to the wallet profile id
	Identity   string `mapstructure:"identity" yaml:"identity"`
	WalletPath string `mapstructure:"wallet" yaml:"wallet"`

	// Address of the admin status and metrics endpoint
	AdminAddr string `mapstructure:"adminAddr" yaml:"adminAddr"`

	Storage kv.Options     `mapstructure:"storage" yaml:"storage"`
	Hosts   []tracker.Host `mapstructure:"hosts" yaml:"hosts"`

	// How often shards of expired contracts are reclaimed. Zero disables it.
	ExpiryInterval time.Duration `mapstructure:"expiryInterval" yaml:"expiryInterval"`
}

var DefaultConfig = Config{
	WalletPath:     "wallet.yaml",
	AdminAddr:      "localhost:8080",
	Storage:        kv.DefaultOptions,
	ExpiryInterval: time.Minute,
}

// ByteSizeHook decodes human readable sizes such as "5 GB" into integer
// fields.
func ByteSizeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Int64 || to == reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		size, err := humanize.ParseBytes(data.(string))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid size %q", data)
		}
		return int64(size), nil
	}
}

// DecodeHook is the hook used to decode a Config from a generic map.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		ByteSizeHook(),
	)
}

// DecodeConfig decodes raw configuration values on top of DefaultConfig.
func DecodeConfig(raw map[string]any) (Config, error) {
	conf := DefaultConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeHook(),
		Result:           &conf,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return conf, nil
}
