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
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type fileContent struct {
	Profile   Profile    `yaml:"profile"`
	Contracts []Contract `yaml:"contracts,omitempty"`
}

// File is a wallet persisted as a yaml document.
type File struct {
	*Memory
	path string
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read wallet %s", path)
	}
	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, errors.Wrapf(err, "failed to parse wallet %s", path)
	}
	if content.Profile.ID == "" {
		return nil, errors.Errorf("wallet %s has no profile", path)
	}
	return &File{Memory: NewMemory(content.Profile, content.Contracts...), path: path}, nil
}

// Create initializes a new wallet file with a fresh profile. It fails if
// the file already exists.
func Create(path string) (*File, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("wallet %s already exists", path)
	}
	profile, err := GenerateProfile()
	if err != nil {
		return nil, err
	}
	f := &File{Memory: NewMemory(profile), path: path}
	return f, f.Save()
}

func (f *File) Save() error {
	contracts, _ := f.Contracts(context.Background())
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].ID < contracts[j].ID })

	data, err := yaml.Marshal(fileContent{Profile: f.profile, Contracts: contracts})
	if err != nil {
		return errors.Wrap(err, "failed to serialize wallet")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create wallet directory")
	}
	return errors.Wrapf(os.WriteFile(f.path, data, 0o600), "failed to write wallet %s", f.path)
}
