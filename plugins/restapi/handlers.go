// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package restapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"

	"github.com/contiv/podtunnel/plugins/crd/store"
)

// errorString wraps string representation of an error that, unlike the original
// error, can be marshalled.
type errorString struct {
	Error string `json:"error"`
}

// Server serves the read-only operator REST API.
type Server struct {
	Deps

	formatter *render.Render
}

// Deps lists dependencies of the Server.
type Deps struct {
	Log   logging.Logger
	Store store.Store
	// Gatherer backs RestURLMetrics, the endpoint is not registered when nil.
	Gatherer prometheus.Gatherer
}

// NewServer creates a new Server.
func NewServer(deps Deps) *Server {
	return &Server{
		Deps:      deps,
		formatter: render.New(render.Options{IndentJSON: true}),
	}
}

// Handler returns the router with all REST handlers registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(RestURLPools, s.poolsGetHandler).Methods(http.MethodGet)
	router.HandleFunc(RestURLTunnels, s.tunnelsGetHandler).Methods(http.MethodGet)
	router.HandleFunc(RestURLTunnel, s.tunnelGetHandler).Methods(http.MethodGet)
	if s.Gatherer != nil {
		router.Handle(RestURLMetrics, promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

func (s *Server) poolsGetHandler(w http.ResponseWriter, req *http.Request) {
	s.Log.Debug("Getting address pools")

	pools, err := ListPoolInfo(req.Context(), s.Store, req.URL.Query().Get("namespace"))
	if err != nil {
		s.Log.Errorf("Failed to list address pools: %v", err)
		s.formatter.JSON(w, http.StatusInternalServerError, errorString{err.Error()})
		return
	}
	s.formatter.JSON(w, http.StatusOK, pools)
}

func (s *Server) tunnelsGetHandler(w http.ResponseWriter, req *http.Request) {
	s.Log.Debug("Getting tunnel configs")

	tunnels, err := ListTunnelInfo(req.Context(), s.Store, req.URL.Query().Get("namespace"))
	if err != nil {
		s.Log.Errorf("Failed to list tunnel configs: %v", err)
		s.formatter.JSON(w, http.StatusInternalServerError, errorString{err.Error()})
		return
	}
	s.formatter.JSON(w, http.StatusOK, tunnels)
}

func (s *Server) tunnelGetHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	cfg, err := s.Store.GetConfig(req.Context(), vars["namespace"], vars["name"])
	switch {
	case store.IsNotFound(err):
		s.formatter.JSON(w, http.StatusNotFound, errorString{err.Error()})
	case err != nil:
		s.Log.Errorf("Failed to get tunnel config: %v", err)
		s.formatter.JSON(w, http.StatusInternalServerError, errorString{err.Error()})
	default:
		s.formatter.JSON(w, http.StatusOK, NewTunnelInfo(cfg))
	}
}
