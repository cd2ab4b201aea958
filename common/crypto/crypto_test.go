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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	h := HashString("hello")
	assert.Len(t, h, 64)
	assert.Equal(t, h, Hash([]byte("hello")))
	assert.NotEqual(t, h, HashString("hello!"))

	assert.True(t, IsValidHash(h, []byte("hello")))
	assert.False(t, IsValidHash(h, []byte("hellO")))
	assert.False(t, IsValidHash("", []byte("hello")))
}

func TestSymmetricRoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	ciphertext, err := EncryptSymmetric([]byte("secret content"), key)
	require.NoError(t, err)

	other, err := EncryptSymmetric([]byte("secret content"), key)
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, other, "nonces must be random")

	plaintext, err := DecryptSymmetric(ciphertext, key)
	require.NoError(t, err)
	assert.Equal(t, "secret content", string(plaintext))

	wrongKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	_, err = DecryptSymmetric(ciphertext, wrongKey)
	assert.Error(t, err)

	_, err = DecryptSymmetric("AAAA", key)
	assert.Error(t, err)
}

func TestAsymmetricRoundTrip(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, err := EncryptAsymmetric([]byte("wrapped"), keys.PublicKey)
	require.NoError(t, err)

	plaintext, err := DecryptAsymmetric(ciphertext, keys.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "wrapped", string(plaintext))

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	_, err = DecryptAsymmetric(ciphertext, other.PrivateKey)
	assert.Error(t, err)

	_, err = EncryptAsymmetric([]byte("x"), "not-a-key")
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := Sign([]byte("message"), keys.PrivateKey)
	require.NoError(t, err)

	ok, err := Verify([]byte("message"), sig, keys.PublicKey)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify([]byte("messagE"), sig, keys.PublicKey)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	ok, err = Verify([]byte("message"), sig, other.PublicKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify([]byte("message"), "zz", keys.PublicKey)
	assert.Error(t, err)
}

func TestKeyPairID(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Equal(t, HashString(keys.PublicKey), keys.ID())
}
