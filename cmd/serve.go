// Copyright 2025 The blueth Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/blueth-go/blueth/common"
	"github.com/blueth-go/blueth/confengine"
	"github.com/blueth-go/blueth/connlog"
	"github.com/blueth-go/blueth/httpmsg"
	"github.com/blueth-go/blueth/httpparse"
	"github.com/blueth-go/blueth/iobuf"
	"github.com/blueth-go/blueth/internal/sigs"
	"github.com/blueth-go/blueth/logger"
	"github.com/blueth-go/blueth/reactor"
	"github.com/blueth-go/blueth/server"
)

type serveCmdConfig struct {
	Address      string
	Console      bool
	ConnlogFile  string
	AdminAddress string
	AdminPprof   bool
	IdleTimeout  time.Duration
}

func (c *serveCmdConfig) Yaml() []byte {
	text := `
logger:
  stdout: true

connlog:
  console: {{ .Console }}
  filename: {{ .ConnlogFile }}

server:
  enabled: true
  address: {{ .AdminAddress }}
  pprof: {{ .AdminPprof }}
  timeout: 5s

reactor:
  address: {{ .Address }}
  backlog: 128
  maxEvents: 256
  idleTTL: {{ .IdleTimeout }}
  pollTimeout: 1s
`
	tpl, err := template.New("serveConfig").Parse(text)
	if err != nil {
		return nil
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, c); err != nil {
		return nil
	}
	return buf.Bytes()
}

var serveConfig serveCmdConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reactor-based HTTP responder and admin server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadContent(serveConfig.Yaml())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if err := setupLogger(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to configure logger: %v\n", err)
			os.Exit(1)
		}

		sink, err := connlog.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to configure connlog: %v\n", err)
			os.Exit(1)
		}

		var reactorConfig reactor.Config
		if err := cfg.UnpackChild("reactor", &reactorConfig); err != nil {
			fmt.Fprintf(os.Stderr, "failed to unpack reactor config: %v\n", err)
			os.Exit(1)
		}

		// sink may be a nil *connlog.Logger (console/filename both unset);
		// pass a true nil interface in that case so reactor.New's own
		// sink==nil check substitutes its noop sink instead of calling
		// through a nil receiver.
		var eventSink reactor.EventSink
		if sink != nil {
			eventSink = sink
		}
		r, err := newResponderReactor(reactorConfig, eventSink)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create reactor: %v\n", err)
			os.Exit(1)
		}

		srv, err := server.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin server: %v\n", err)
			os.Exit(1)
		}
		if srv != nil {
			wireAdminRoutes(srv, sink)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("admin server stopped: %v", err)
				}
			}()
		}

		go func() {
			if err := r.ListenAndServe(); err != nil {
				logger.Errorf("reactor stopped: %v", err)
			}
		}()

		for {
			select {
			case <-sigs.Terminate():
				shutdown(r, srv, sink)
				return
			case <-sigs.Reload():
				logger.Infof("reload requested; serve does not currently re-read listener config")
			}
		}
	},
	Example: "# blueth serve --address :8080 --admin-address :9090 --console",
}

// setupLogger loads the "logger" config block and applies it to the
// package-level logger, grounded on controller.go's setupLogger.
func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}
	logger.SetOptions(opts)
	return nil
}

func shutdown(r *reactor.Reactor, srv *server.Server, sink *connlog.Logger) {
	var errs error
	if err := r.Stop(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		logger.Errorf("shutdown: %v", errs)
	}
}

// wireAdminRoutes registers /metrics (Prometheus) and /connlog (a live
// newline-delimited-JSON feed of reactor accept/close events) on the admin
// server, alongside the pprof routes server.New already adds.
func wireAdminRoutes(srv *server.Server, sink *connlog.Logger) {
	srv.RegisterGetRoute("/metrics", promhttp.Handler().ServeHTTP)
	if sink == nil {
		return
	}
	srv.RegisterGetRoute("/connlog", func(w http.ResponseWriter, req *http.Request) {
		q := sink.Subscribe()
		defer sink.Unsubscribe(q)

		flusher, ok := w.(http.Flusher)
		enc := json.NewEncoder(w)
		for {
			select {
			case <-req.Context().Done():
				return
			default:
			}
			v, ok2 := q.PopTimeout(time.Second)
			if !ok2 {
				continue
			}
			if err := enc.Encode(v); err != nil {
				return
			}
			if ok {
				flusher.Flush()
			}
		}
	})
}

type connState struct {
	buf     *iobuf.Buffer
	out     *iobuf.Buffer
	parser  *httpparse.RequestParser
	fed     int
	closing bool
}

// newResponderReactor builds a reactor that parses each incoming request
// with httpparse.RequestParser and answers with a fixed 200 response,
// exercising components C/D/E end to end the way the "echo" in
// reactor_test.go exercises C alone.
func newResponderReactor(cfg reactor.Config, sink reactor.EventSink) (*reactor.Reactor, error) {
	r, err := reactor.New(cfg, sink)
	if err != nil {
		return nil, err
	}

	r.OnAccept(func(peer *reactor.Peer, rr *reactor.Reactor) reactor.FdIntent {
		peer.State = &connState{
			buf:    iobuf.New(common.DefaultIOBufferSize),
			out:    iobuf.New(common.DefaultIOBufferSize),
			parser: httpparse.NewRequestParser(),
		}
		return reactor.IntentRead
	})

	r.OnRead(func(peer *reactor.Peer, rr *reactor.Reactor) reactor.FdIntent {
		st := peer.State.(*connState)
		if _, err := rr.ReadFromPeer(peer, st.buf); err != nil {
			return reactor.IntentClose
		}

		data := st.buf.Bytes()
		if st.fed < len(data) {
			st.parser.Feed(data[st.fed:])
			st.fed = len(data)
		}

		switch st.parser.State {
		case httpparse.ParsingDone:
			st.out.Append([]byte(respondTo(st.parser.Message)))
			st.closing = true
			return reactor.IntentWrite
		case httpparse.ProtocolError:
			st.out.Append([]byte(badRequest()))
			st.closing = true
			return reactor.IntentWrite
		default:
			return reactor.IntentRead
		}
	})

	r.OnWrite(func(peer *reactor.Peer, rr *reactor.Reactor) reactor.FdIntent {
		st := peer.State.(*connState)
		if st.out.DataLen() > 0 {
			if _, err := rr.WriteToPeer(peer, st.out); err != nil {
				return reactor.IntentClose
			}
		}
		if st.out.DataLen() > 0 {
			return reactor.IntentWrite
		}
		if st.closing {
			return reactor.IntentClose
		}
		return reactor.IntentRead
	})

	return r, nil
}

func respondTo(req *httpmsg.Request) string {
	resp := httpmsg.NewResponse()
	resp.StatusCode = 200
	body := fmt.Sprintf("%s %s\n", req.Method, req.Target)
	resp.AppendBody([]byte(body))
	resp.Headers.Add("Content-Length", fmt.Sprintf("%d", len(body)))
	resp.Headers.Add("Connection", "close")
	return resp.BuildRaw()
}

func badRequest() string {
	resp := httpmsg.NewResponse()
	resp.StatusCode = 400
	resp.Headers.Add("Content-Length", "0")
	resp.Headers.Add("Connection", "close")
	return resp.BuildRaw()
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.Address, "address", ":8080", "Address the reactor listens on")
	serveCmd.Flags().BoolVar(&serveConfig.Console, "console", true, "Log connlog events to stdout instead of a file")
	serveCmd.Flags().StringVar(&serveConfig.ConnlogFile, "connlog-file", "blueth.connlog", "Path to the connlog file (used when --console=false)")
	serveCmd.Flags().StringVar(&serveConfig.AdminAddress, "admin-address", ":9090", "Address the admin/metrics server listens on")
	serveCmd.Flags().BoolVar(&serveConfig.AdminPprof, "admin-pprof", false, "Expose /debug/pprof on the admin server")
	serveCmd.Flags().DurationVar(&serveConfig.IdleTimeout, "idle-timeout", 2*time.Minute, "Idle peer timeout before the reactor closes a connection")
	rootCmd.AddCommand(serveCmd)
}
