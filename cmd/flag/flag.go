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

package flag

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ContractID(cmd *cobra.Command, conf *string) {
	cmd.Flags().StringVarP(conf, "contract", "c", "", "Contract id")
}

// ByteSize is a pflag value accepting human readable sizes such as "200 MB".
type ByteSize int64

var _ pflag.Value = (*ByteSize)(nil)

func (b *ByteSize) String() string {
	return humanize.Bytes(uint64(*b))
}

func (b *ByteSize) Set(s string) error {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	*b = ByteSize(v)
	return nil
}

func (*ByteSize) Type() string {
	return "bytes"
}

func SpaceReserved(cmd *cobra.Command, conf *ByteSize) {
	cmd.Flags().VarP(conf, "space", "s", "Space reserved by the contract, a multiple of the shard size")
}
