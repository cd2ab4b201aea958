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

package wallet

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/subspace/shardstore/cmd/common"
	"github.com/subspace/shardstore/cmd/flag"
	"github.com/subspace/shardstore/server/wallet"
)

var (
	walletPath string

	Cmd = &cobra.Command{
		Use:   "wallet",
		Short: "Manage the local profile and storage contracts",
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a wallet with a new profile",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	contractCmd = &cobra.Command{
		Use:   "contract",
		Short: "Create a storage contract owned by the wallet profile",
		Args:  cobra.NoArgs,
		RunE:  runContract,
	}

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the wallet profile id and its contracts",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}

	contractConf = struct {
		space             flag.ByteSize
		replicationFactor int
		ttl               time.Duration
	}{}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&walletPath, "wallet", "w", "wallet.yaml", "Wallet file holding the profile and contracts")

	contractConf.space = flag.ByteSize(100_000_000)
	flag.SpaceReserved(contractCmd, &contractConf.space)
	contractCmd.Flags().IntVarP(&contractConf.replicationFactor, "replication-factor", "r", 3, "Number of hosts holding each shard")
	contractCmd.Flags().DurationVarP(&contractConf.ttl, "ttl", "t", 30*24*time.Hour, "Contract lifetime")

	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(contractCmd)
	Cmd.AddCommand(showCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	w, err := wallet.Create(walletPath)
	if err != nil {
		return err
	}
	profile, _ := w.Profile(cmd.Context())
	return common.WriteYAML(cmd.OutOrStdout(), map[string]string{"profile": profile.ID})
}

func runContract(cmd *cobra.Command, _ []string) error {
	w, err := wallet.Load(walletPath)
	if err != nil {
		return err
	}
	profile, err := w.Profile(cmd.Context())
	if err != nil {
		return err
	}
	contract, err := wallet.NewContract(profile, int64(contractConf.space), contractConf.replicationFactor, contractConf.ttl, time.Now())
	if err != nil {
		return err
	}
	w.AddContract(contract)
	if err := w.Save(); err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), contract.Public())
}

type summary struct {
	Profile   string            `yaml:"profile"`
	Contracts []wallet.Contract `yaml:"contracts"`
}

func runShow(cmd *cobra.Command, _ []string) error {
	w, err := wallet.Load(walletPath)
	if err != nil {
		return err
	}
	profile, err := w.Profile(cmd.Context())
	if err != nil {
		return err
	}
	contracts, err := w.Contracts(cmd.Context())
	if err != nil {
		return err
	}
	s := summary{Profile: profile.ID}
	for _, c := range contracts {
		s.Contracts = append(s.Contracts, c.Public())
	}
	return common.WriteYAML(cmd.OutOrStdout(), s)
}
