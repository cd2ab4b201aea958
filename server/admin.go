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

package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/metrics"
)

type shardStatus struct {
	ID         string   `json:"id"`
	ContractID string   `json:"contract"`
	Size       int64    `json:"size"`
	Free       int64    `json:"free"`
	Count      int      `json:"count"`
	Records    []string `json:"records,omitempty"`
}

// AdminHandler serves the read-only status of a host and its metrics.
func AdminHandler(h *Host) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/shards", func(w http.ResponseWriter, r *http.Request) {
		ids, err := h.index.GetAllShards(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		res := make([]shardStatus, 0, len(ids))
		for _, id := range ids {
			shard, err := h.index.GetShard(r.Context(), id)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			res = append(res, shardStatus{
				ID:         shard.ID,
				ContractID: shard.ContractID,
				Size:       shard.Size,
				Free:       common.ShardSize - shard.Size,
				Count:      shard.Records.Count(),
			})
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/shards/{id}", func(w http.ResponseWriter, r *http.Request) {
		shard, err := h.index.GetShard(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, shardStatus{
			ID:         shard.ID,
			ContractID: shard.ContractID,
			Size:       shard.Size,
			Free:       common.ShardSize - shard.Size,
			Count:      shard.Records.Count(),
			Records:    shard.Records.GetSorted(),
		})
	})

	r.Get("/placement/{key}", func(w http.ResponseWriter, r *http.Request) {
		contractID := r.URL.Query().Get("contract")
		if contractID == "" {
			writeError(w, http.StatusBadRequest, errors.New("missing contract parameter"))
			return
		}
		contract, err := h.wallet.Contract(r.Context(), contractID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		res, err := h.placer.GetShardAndHostsForKey(r.Context(), chi.URLParam(r, "key"), contract)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Handle("/metrics", metrics.Handler())
	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrShardNotFound),
		errors.Is(err, common.ErrContractNotFound),
		errors.Is(err, common.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidContractSize):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
