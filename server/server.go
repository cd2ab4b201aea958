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
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/server/kv"
	"github.com/subspace/shardstore/server/tracker"
	"github.com/subspace/shardstore/server/wallet"
)

// Server runs a Host with its store, its admin endpoint and the contract
// expiry loop.
type Server struct {
	host    *Host
	store   kv.Store
	tracker *tracker.Static

	httpServer *http.Server
	listener   net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

func New(conf Config) (*Server, error) {
	w, err := wallet.Load(conf.WalletPath)
	if err != nil {
		return nil, err
	}
	return NewWithWallet(conf, w, common.SystemClock())
}

func NewWithWallet(conf Config, w wallet.Wallet, clock common.Clock) (*Server, error) {
	if conf.Identity == "" {
		profile, err := w.Profile(context.Background())
		if err != nil {
			return nil, err
		}
		conf.Identity = profile.ID
	}

	slog.Info(
		"Starting shardstore host",
		slog.String("identity", conf.Identity),
		slog.String("storage", string(conf.Storage.Backend)),
		slog.String("admin-addr", conf.AdminAddr),
		slog.Int("hosts", len(conf.Hosts)),
	)

	store, err := kv.Open(conf.Storage)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:   store,
		tracker: tracker.NewStatic(conf.Hosts),
		log: slog.With(
			slog.String("component", "server"),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.host, err = NewHost(conf.Identity, w, s.tracker, store, clock); err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	if s.listener, err = net.Listen("tcp", conf.AdminAddr); err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "failed to listen on %s", conf.AdminAddr),
			s.host.Close(),
			store.Close(),
		)
	}
	s.httpServer = &http.Server{
		Handler:           AdminHandler(s.host),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go pprof.Do(s.ctx, pprof.Labels("shardstore", "admin"), func(context.Context) {
		defer s.wg.Done()
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Failed to serve admin endpoint", slog.Any("error", err))
		}
	})
	s.log.Info("Serving admin endpoint", slog.String("addr", s.listener.Addr().String()))

	if conf.ExpiryInterval > 0 {
		s.wg.Add(1)
		go pprof.Do(s.ctx, pprof.Labels("shardstore", "expiry"), func(ctx context.Context) {
			defer s.wg.Done()
			s.runExpiry(ctx, conf.ExpiryInterval)
		})
	}

	return s, nil
}

func (s *Server) runExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.host.ExpireContracts(ctx); err != nil {
				s.log.Warn("Failed to expire contracts", slog.Any("error", err))
			}
		}
	}
}

func (s *Server) Host() *Host {
	return s.host
}

// UpdateHosts replaces the host population used for placement.
func (s *Server) UpdateHosts(hosts []tracker.Host) {
	s.tracker.Update(hosts)
}

func (s *Server) AdminAddr() string {
	return s.listener.Addr().String()
}

func (s *Server) Close() error {
	s.cancel()
	err := s.httpServer.Close()
	s.wg.Wait()

	return multierr.Combine(
		err,
		s.host.Close(),
		s.store.Close(),
	)
}
