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

package shards

import (
	"github.com/spf13/cobra"

	"github.com/subspace/shardstore/cmd/common"
	"github.com/subspace/shardstore/cmd/flag"
	"github.com/subspace/shardstore/shards"
)

var (
	contractID string
	space      flag.ByteSize

	Cmd = &cobra.Command{
		Use:   "shards",
		Short: "Compute the shards of a contract",
	}

	computeCmd = &cobra.Command{
		Use:   "compute",
		Short: "List the shard ids of a contract",
		Args:  cobra.NoArgs,
		RunE:  runCompute,
	}

	keyCmd = &cobra.Command{
		Use:   "key KEY",
		Short: "Resolve the shard holding a record key",
		Args:  cobra.ExactArgs(1),
		RunE:  runKey,
	}
)

func init() {
	space = flag.ByteSize(100_000_000)
	for _, c := range []*cobra.Command{computeCmd, keyCmd} {
		flag.ContractID(c, &contractID)
		flag.SpaceReserved(c, &space)
		_ = c.MarkFlagRequired("contract")
	}

	Cmd.AddCommand(computeCmd)
	Cmd.AddCommand(keyCmd)
}

func runCompute(cmd *cobra.Command, _ []string) error {
	ids, err := shards.ComputeShardArray(contractID, int64(space))
	if err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), map[string]any{"shards": ids})
}

type keyOutput struct {
	Key     string `yaml:"key"`
	Index   int    `yaml:"index"`
	ShardID string `yaml:"shardId"`
}

func runKey(cmd *cobra.Command, args []string) error {
	idx, err := shards.ComputeShardForKey(args[0], int64(space))
	if err != nil {
		return err
	}
	ids, err := shards.ComputeShardArray(contractID, int64(space))
	if err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), keyOutput{Key: args[0], Index: idx, ShardID: ids[idx]})
}
