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

package placement

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subspace/shardstore/cmd/common"
	"github.com/subspace/shardstore/cmd/flag"
	"github.com/subspace/shardstore/placement"
	"github.com/subspace/shardstore/server"
	"github.com/subspace/shardstore/server/tracker"
	"github.com/subspace/shardstore/shards"
)

var (
	hostsFile string
	exclude   string

	Cmd = &cobra.Command{
		Use:   "placement",
		Short: "Compute which hosts replicate shards",
	}

	hostsCmd = &cobra.Command{
		Use:   "hosts [SHARD_ID...]",
		Short: "Select the replica hosts of shards, or of every shard of a contract",
		RunE:  runHosts,
	}

	hostsConf = struct {
		replicationFactor int
		contract          string
		space             flag.ByteSize
	}{}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&hostsFile, "hosts", "f", "", "Config file listing the host population")
	Cmd.PersistentFlags().StringVarP(&exclude, "exclude", "x", "", "Host never selected as a replica")
	_ = Cmd.MarkPersistentFlagRequired("hosts")

	hostsCmd.Flags().IntVarP(&hostsConf.replicationFactor, "replication-factor", "r", 3, "Number of hosts per shard")
	flag.ContractID(hostsCmd, &hostsConf.contract)
	hostsConf.space = flag.ByteSize(100_000_000)
	flag.SpaceReserved(hostsCmd, &hostsConf.space)

	Cmd.AddCommand(hostsCmd)
}

// LoadHosts reads the hosts section of a host config file.
func LoadHosts(file string) ([]tracker.Host, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read hosts %s", file)
	}
	conf, err := server.DecodeConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}
	return conf.Hosts, nil
}

func runHosts(cmd *cobra.Command, args []string) error {
	shardIDs := args
	if hostsConf.contract != "" {
		ids, err := shards.ComputeShardArray(hostsConf.contract, int64(hostsConf.space))
		if err != nil {
			return err
		}
		shardIDs = append(shardIDs, ids...)
	}
	if len(shardIDs) == 0 {
		return errors.New("no shard id nor contract given")
	}

	hosts, err := LoadHosts(hostsFile)
	if err != nil {
		return err
	}
	placer, err := placement.NewPlacer(tracker.NewStatic(hosts), exclude)
	if err != nil {
		return err
	}
	defer placer.Close()

	res, err := placer.ComputeHostsForShards(cmd.Context(), shardIDs, hostsConf.replicationFactor)
	if err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), res)
}
