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

package host

import (
	"io"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subspace/shardstore/common/process"
	"github.com/subspace/shardstore/server"
)

var (
	configFile string

	Cmd = &cobra.Command{
		Use:   "host",
		Short: "Start a storage host",
		Long:  `Start a storage host serving the contracts of its wallet`,
		Args:  cobra.NoArgs,
		RunE:  exec,
	}
)

func init() {
	Cmd.Flags().StringVarP(&configFile, "conf", "f", "", "Host config file")
	Cmd.Flags().StringP("wallet", "w", server.DefaultConfig.WalletPath, "Wallet file holding the profile and contracts")
	Cmd.Flags().StringP("identity", "i", "", "Host identity, defaults to the wallet profile id")
	Cmd.Flags().StringP("admin-addr", "a", server.DefaultConfig.AdminAddr, "Admin endpoint address")
	Cmd.Flags().String("storage", string(server.DefaultConfig.Storage.Backend), "Storage backend [pebble|sqlite|memory]")
	Cmd.Flags().String("data-dir", server.DefaultConfig.Storage.DataDir, "Directory where the records are stored")
}

// NewViper returns a viper instance bound to the host command flags and,
// when one is given, to the config file.
func NewViper(cmd *cobra.Command, file string) (*viper.Viper, error) {
	v := viper.New()
	for key, name := range map[string]string{
		"wallet":          "wallet",
		"identity":        "identity",
		"adminAddr":       "admin-addr",
		"storage.backend": "storage",
		"storage.dataDir": "data-dir",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", file)
		}
	}
	return v, nil
}

func LoadConfig(v *viper.Viper) (server.Config, error) {
	return server.DecodeConfig(v.AllSettings())
}

func exec(cmd *cobra.Command, _ []string) error {
	v, err := NewViper(cmd, configFile)
	if err != nil {
		return err
	}
	conf, err := LoadConfig(v)
	if err != nil {
		return err
	}

	process.RunProcess(func() (io.Closer, error) {
		s, err := server.New(conf)
		if err != nil {
			return nil, err
		}
		if configFile != "" {
			watch(v, s)
		}
		return s, nil
	})
	return nil
}

// watch reloads the host population when the config file changes. Other
// settings need a restart.
func watch(v *viper.Viper, s *server.Server) {
	v.OnConfigChange(func(_ fsnotify.Event) {
		conf, err := LoadConfig(v)
		if err != nil {
			slog.Warn(
				"Ignoring invalid config change",
				slog.Any("error", err),
			)
			return
		}
		s.UpdateHosts(conf.Hosts)
	})
	v.WatchConfig()
}
