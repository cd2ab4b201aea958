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
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/pkg/errors"
)

// keySeparator joins the encryption half and the signing half of a key.
const keySeparator = "."

// KeyPair bundles an age X25519 key, used to wrap secrets, with an Ed25519
// key, used for detached signatures. Both halves travel as a single string
// so a record or contract carries exactly one public and one private key.
//
//	public:  age1...<sep><hex ed25519 public key>
//	private: AGE-SECRET-KEY-1...<sep><hex ed25519 seed>
type KeyPair struct {
	PublicKey  string `json:"publicKey" yaml:"publicKey"`
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
}

// ID is the identity derived from the public key.
func (k KeyPair) ID() string {
	return HashString(k.PublicKey)
}

func GenerateKeyPair() (KeyPair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "failed to generate age identity")
	}

	signPublic, signPrivate, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "failed to generate ed25519 key")
	}

	return KeyPair{
		PublicKey:  identity.Recipient().String() + keySeparator + hex.EncodeToString(signPublic),
		PrivateKey: identity.String() + keySeparator + hex.EncodeToString(signPrivate.Seed()),
	}, nil
}

func splitKey(key string) (string, string, error) {
	encryption, signing, found := strings.Cut(key, keySeparator)
	if !found || encryption == "" || signing == "" {
		return "", "", errors.New("malformed key")
	}
	return encryption, signing, nil
}

// EncryptAsymmetric encrypts plaintext to the holder of publicKey. The
// ciphertext is base64 encoded.
func EncryptAsymmetric(plaintext []byte, publicKey string) (string, error) {
	encryption, _, err := splitKey(publicKey)
	if err != nil {
		return "", err
	}

	recipient, err := age.ParseX25519Recipient(encryption)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse recipient key")
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", errors.Wrap(err, "failed to create encryptor")
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", errors.Wrap(err, "failed to write plaintext")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "failed to finalize encryption")
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func DecryptAsymmetric(ciphertext string, privateKey string) ([]byte, error) {
	encryption, _, err := splitKey(privateKey)
	if err != nil {
		return nil, err
	}

	identity, err := age.ParseX25519Identity(encryption)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt")
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read plaintext")
	}
	return plaintext, nil
}

// Sign returns a hex encoded detached signature of message.
func Sign(message []byte, privateKey string) (string, error) {
	_, signing, err := splitKey(privateKey)
	if err != nil {
		return "", err
	}

	seed, err := hex.DecodeString(signing)
	if err != nil || len(seed) != ed25519.SeedSize {
		return "", errors.New("malformed signing key")
	}

	return hex.EncodeToString(ed25519.Sign(ed25519.NewKeyFromSeed(seed), message)), nil
}

// Verify checks a detached signature. A malformed key or signature is an
// error; a well formed signature that does not match returns false.
func Verify(message []byte, signature string, publicKey string) (bool, error) {
	_, signing, err := splitKey(publicKey)
	if err != nil {
		return false, err
	}

	pub, err := hex.DecodeString(signing)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, errors.New("malformed verification key")
	}

	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, errors.New("malformed signature")
	}

	return ed25519.Verify(pub, message, sig), nil
}
