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

package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// SymmetricKeySize is the size in bytes of content encryption keys.
const SymmetricKeySize = chacha20poly1305.KeySize

// GenerateSymmetricKey returns a random content key, base64 encoded.
func GenerateSymmetricKey() (string, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", errors.Wrap(err, "failed to generate symmetric key")
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// EncryptSymmetric seals plaintext with XChaCha20-Poly1305 under key. The
// output is base64([nonce][ciphertext+tag]).
func EncryptSymmetric(plaintext []byte, key string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "failed to generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptSymmetric(ciphertext string, key string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}
	if len(raw) < chacha20poly1305.NonceSizeX+aead.Overhead() {
		return nil, errors.Errorf("ciphertext is %d bytes, minimum is %d", len(raw), chacha20poly1305.NonceSizeX+aead.Overhead())
	}

	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt content")
	}
	return plaintext, nil
}

func newAEAD(key string) (cipher.AEAD, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode symmetric key")
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	return aead, nil
}
