package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/caffeineduck/hashcall/hostfunc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for hashing",
	Long: `Start an HTTP server that hashes request bodies through the syscall path.

Endpoints:
  POST   /digest       Hash data, body {"algorithm":"sha2-256","data":"<base64>"}
  GET    /algorithms   List supported algorithms
  GET    /metrics      Prometheus metrics
  GET    /health       Health check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Int64("max-body", 16*1024*1024, "Max request body size")
	serveCmd.Flags().Uint32("out-cap", 64, "Output buffer capacity in bytes")
	serveCmd.Flags().Float64("rate", 0, "Max /digest requests per second (0 = unlimited)")
	rootCmd.AddCommand(serveCmd)
}

type digestRequest struct {
	Algorithm string  `json:"algorithm,omitempty"`
	Code      *uint64 `json:"code,omitempty"`
	Data      []byte  `json:"data"`
	InPlace   bool    `json:"in_place,omitempty"`
}

type digestResponse struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest,omitempty"`
	Size      int    `json:"size"`
	Errno     uint32 `json:"errno"`
	Error     string `json:"error,omitempty"`
}

type algorithmInfo struct {
	Code uint64 `json:"code"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type server struct {
	hasher  *hostfunc.Hasher
	maxBody int64
	outCap  uint32
	limiter *rate.Limiter
	logger  log.FieldLogger
}

// newServerMux wires the handlers. Syscall metrics are registered with reg and
// served from it on /metrics. /digest is limited to limit requests per second.
func newServerMux(reg *prometheus.Registry, maxBody int64, outCap uint32, limit rate.Limit) http.Handler {
	s := &server{
		hasher: hostfunc.NewHasher(
			hostfunc.WithLogger(log.StandardLogger()),
			hostfunc.WithMetrics(hostfunc.NewMetrics(reg)),
		),
		maxBody: maxBody,
		outCap:  outCap,
		limiter: rate.NewLimiter(limit, limiterBurst(limit)),
		logger:  log.WithField("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/digest", s.handleDigest)
	mux.HandleFunc("/algorithms", s.handleAlgorithms)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// limiterBurst allows one second's worth of requests at once. rate.Inf has no
// meaningful integer value and never consults the burst.
func limiterBurst(limit rate.Limit) int {
	if limit == rate.Inf || limit <= 1 {
		return 1
	}
	return int(limit)
}

func (s *server) handleDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req digestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var code uint64
	switch {
	case req.Code != nil:
		code = *req.Code
	case req.Algorithm != "":
		c, err := algorithmCode(req.Algorithm)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		code = c
	default:
		code = uint64(hashalg.Sha2_256)
	}

	resp := digestResponse{Algorithm: hashalg.Code(code).String()}
	digest, err := digestVia(s.hasher, code, req.Data, s.outCap, req.InPlace)
	if err != nil {
		s.logger.WithError(err).Debug("digest rejected")
		resp.Errno = hostfunc.Errno(err)
		resp.Error = hostfunc.IllegalArgument.Error()
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Digest = hex.EncodeToString(digest)
	resp.Size = len(digest)
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var out []algorithmInfo
	for _, d := range hashalg.All() {
		out = append(out, algorithmInfo{Code: uint64(d.Code), Name: d.Name, Size: d.Size})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	maxBody, _ := cmd.Flags().GetInt64("max-body")
	outCap, _ := cmd.Flags().GetUint32("out-cap")
	rps, _ := cmd.Flags().GetFloat64("rate")

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newServerMux(reg, maxBody, outCap, limit),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", srv.Addr).Info("hashcall server listening")
	fmt.Fprintf(cmd.ErrOrStderr(), "hashcall server listening on %s\n", srv.Addr)
	return srv.ListenAndServe()
}
