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

package record

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/subspace/shardstore/cmd/common"
	"github.com/subspace/shardstore/record"
	"github.com/subspace/shardstore/server/wallet"
)

var (
	walletPath string
	recordPath string

	Cmd = &cobra.Command{
		Use:   "record",
		Short: "Create, open, update and validate record files",
	}

	createCmd = &cobra.Command{
		Use:   "create CONTENT",
		Short: "Create a record owned by the wallet profile",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	openCmd = &cobra.Command{
		Use:   "open",
		Short: "Decrypt and print the content of a record",
		Args:  cobra.NoArgs,
		RunE:  runOpen,
	}

	updateCmd = &cobra.Command{
		Use:   "update CONTENT",
		Short: "Replace the content of a mutable record",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check the integrity of a record",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	contentType string
	createConf  = struct {
		contract string
		mutable  bool
		encrypt  bool
	}{}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&walletPath, "wallet", "w", "wallet.yaml", "Wallet file holding the profile and contracts")
	Cmd.PersistentFlags().StringVarP(&recordPath, "file", "f", "record.json", "Record file")

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().StringVarP(&contentType, "type", "t", string(record.EncodingString),
			"Content type [null|string|number|boolean|buffer|array|object]")
	}
	createCmd.Flags().StringVarP(&createConf.contract, "contract", "c", "", "Contract the record is stored under")
	createCmd.Flags().BoolVarP(&createConf.mutable, "mutable", "m", false, "Create a mutable record")
	createCmd.Flags().BoolVarP(&createConf.encrypt, "encrypt", "e", false, "Encrypt the content")

	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(openCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(validateCmd)
}

// ParseContent reads a command line argument as content of the given
// type. Buffers are base64, arrays and objects are JSON.
func ParseContent(raw string, contentType string) (record.Value, error) {
	return record.Decode(raw, record.Encoding(contentType))
}

type summary struct {
	Key       string `yaml:"key"`
	Immutable bool   `yaml:"immutable"`
	Size      int64  `yaml:"size"`
	Revision  int64  `yaml:"revision,omitempty"`
	Valid     bool   `yaml:"valid"`
	Reason    string `yaml:"reason,omitempty"`
}

func summarize(r record.Record, res record.Result) summary {
	s := summary{
		Key:       r.Key(),
		Immutable: r.IsImmutable(),
		Size:      r.Size(),
		Valid:     res.Valid,
		Reason:    res.Reason,
	}
	if m, ok := r.(*record.Mutable); ok {
		s.Revision = m.Value.Revision
	}
	return s
}

func loadProfile() (wallet.Profile, error) {
	w, err := wallet.Load(walletPath)
	if err != nil {
		return wallet.Profile{}, err
	}
	return w.Profile(context.Background())
}

func readRecord() (record.Record, error) {
	data, err := os.ReadFile(recordPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read record %s", recordPath)
	}
	return record.Unmarshal(data)
}

func writeRecord(r record.Record) error {
	data, err := record.Marshal(r)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(recordPath, data, 0o600), "failed to write record %s", recordPath)
}

func runCreate(cmd *cobra.Command, args []string) error {
	content, err := ParseContent(args[0], contentType)
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}

	opts := record.CreateOptions{
		Owner:    profile.Identity(),
		Contract: createConf.contract,
		Encrypt:  createConf.encrypt,
	}
	var r record.Record
	if createConf.mutable {
		r, err = record.NewMutable(content, opts)
	} else {
		r, err = record.NewImmutable(content, opts)
	}
	if err != nil {
		return err
	}
	if err := writeRecord(r); err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), summarize(r, record.Validate(r, time.Now())))
}

func runOpen(cmd *cobra.Command, _ []string) error {
	r, err := readRecord()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	content, err := r.Open(profile.Identity())
	if err != nil {
		return err
	}
	encoded, encoding, err := record.Encode(content)
	if err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), map[string]string{
		"type":    string(encoding),
		"content": encoded,
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	content, err := ParseContent(args[0], contentType)
	if err != nil {
		return err
	}
	r, err := readRecord()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	if err := r.Update(content, profile.Identity(), time.Now()); err != nil {
		return err
	}
	if err := writeRecord(r); err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), summarize(r, record.Validate(r, time.Now())))
}

func runValidate(cmd *cobra.Command, _ []string) error {
	r, err := readRecord()
	if err != nil {
		return err
	}
	res := record.Validate(r, time.Now())
	if err := common.WriteYAML(cmd.OutOrStdout(), summarize(r, res)); err != nil {
		return err
	}
	if !res.Valid {
		return res
	}
	return nil
}
