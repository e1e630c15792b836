package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/greenpoints/greenledger/errors"
	"github.com/greenpoints/greenledger/exception"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/monitoring"
	"github.com/greenpoints/greenledger/ratelimit"
)

// rpcBridge is the jrpc2 HTTP bridge serving the method map.
type rpcBridge interface {
	http.Handler
	Close() error
}

// MaxRequestBodyBytes caps the size of one HTTP request body.
const MaxRequestBodyBytes = 1 << 20

// --- Error type used by handlers ---

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes for ledger errors, in the server-defined range.
const (
	codeInvalidParams   = -32602
	codeInternal        = -32603
	codeLedgerError     = -32000
	codeChainIntegrity  = -32001
	codePersistence     = -32002
	codeConflict        = -32003
	codeNotFound        = -32004
	codeResourceLimited = -32005
)

var rpcCodeByLedgerCode = map[errors.LedgerErrorCode]int{
	errors.ErrCodeInvalidRequest:        codeInvalidParams,
	errors.ErrCodeInvalidTransaction:    codeInvalidParams,
	errors.ErrCodeInvalidAddress:        codeInvalidParams,
	errors.ErrCodeInvalidAmount:         codeInvalidParams,
	errors.ErrCodeInvalidSetting:        codeInvalidParams,
	errors.ErrCodeNotFound:              codeNotFound,
	errors.ErrCodeDuplicateTransaction:  codeConflict,
	errors.ErrCodeNoPendingTransactions: codeLedgerError,
	errors.ErrCodePoolDisabled:          codeLedgerError,
	errors.ErrCodeMempoolFull:           codeResourceLimited,
	errors.ErrCodeRateLimited:           codeResourceLimited,
	errors.ErrCodePersistenceFailed:     codePersistence,
	errors.ErrCodeChainIntegrity:        codeChainIntegrity,
	errors.ErrCodeMiningAborted:         codeLedgerError,
	errors.ErrCodeInternal:              codeInternal,
}

// newRPCError maps a service error onto a JSON-RPC error carrying the coded
// ledger error as its message.
func newRPCError(method string, err error) *rpcError {
	le := errors.FromError(err)
	code, ok := rpcCodeByLedgerCode[le.Code]
	if !ok {
		code = codeLedgerError
	}
	if code == codeInternal || code == codePersistence {
		logx.Error("RPC", fmt.Sprintf("%s failed: %v", method, err))
	}
	return &rpcError{Code: code, Message: le.Error()}
}

func toJRPC2Error(e *rpcError) error {
	if e == nil {
		return nil
	}
	var ledgerError errors.LedgerError
	if err := jsonx.Unmarshal([]byte(e.Message), &ledgerError); err == nil && ledgerError.Code != "" {
		return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", ledgerError.Message).WithData(ledgerError)
	}
	return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", e.Message)
}

// --- Server ---

type Server struct {
	addr       string
	txSvc      interfaces.TxService
	acctSvc    interfaces.AccountService
	auditSvc   interfaces.AuditService
	adminSvc   interfaces.AdminService
	healthSvc  interfaces.HealthService
	corsConfig CORSConfig
	limiter    *ratelimit.SubmissionLimiter

	bridgeOnce sync.Once
	bridge     rpcBridge
	httpServer *http.Server
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// Services bundles the service implementations exposed over RPC.
type Services struct {
	Tx      interfaces.TxService
	Account interfaces.AccountService
	Audit   interfaces.AuditService
	Admin   interfaces.AdminService
	Health  interfaces.HealthService
}

func NewServer(addr string, svcs Services) *Server {
	return &Server{
		addr:      addr,
		txSvc:     svcs.Tx,
		acctSvc:   svcs.Account,
		auditSvc:  svcs.Audit,
		adminSvc:  svcs.Admin,
		healthSvc: svcs.Health,
		corsConfig: CORSConfig{
			AllowedOrigins: []string{},
			AllowedMethods: []string{},
			AllowedHeaders: []string{},
			MaxAge:         0,
		},
	}
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// SetRateLimiter limits requests per client IP and submissions per sender.
func (s *Server) SetRateLimiter(limiter *ratelimit.SubmissionLimiter) {
	s.limiter = limiter
}

// Handler returns the HTTP handler serving JSON-RPC requests on every path.
// The handler owns a jrpc2 bridge that is released by Shutdown.
func (s *Server) Handler() http.Handler {
	s.bridgeOnce.Do(func() {
		s.bridge = jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})
	})
	jh := s.bridge

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		ip := extractClientIPFromRequest(r)
		if err := s.limiter.AllowIP(ip); err != nil {
			logx.Warn("RPC", err.Error())
			writeRateLimited(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
		jh.ServeHTTP(w, r)
	})
}

// Start serves JSON-RPC on the configured address in the background, with
// the prometheus metrics on /metrics.
func (s *Server) Start() {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	mux.Handle("/", s.Handler())

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	exception.SafeGo("JSONRPCServer", func() {
		logx.Info("RPC", fmt.Sprintf("JSON-RPC server listening on %s", s.addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("RPC", fmt.Sprintf("JSON-RPC server stopped: %v", err))
		}
	})
}

// Shutdown stops the HTTP server and the jrpc2 bridge.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.bridge != nil {
		if cerr := s.bridge.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// --- Helpers ---

func writeRateLimited(w http.ResponseWriter) {
	le := errors.LedgerError{Code: errors.ErrCodeRateLimited, Message: errors.ErrMsgRateLimited}
	body, _ := jsonx.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": rpcError{
			Code:    codeResourceLimited,
			Message: le.Message,
			Data:    le,
		},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(body)
}

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	// Set allowed origins
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					break
				}
			}
		}
	}

	if len(s.corsConfig.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ", "))
	}

	if len(s.corsConfig.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ", "))
	}

	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(s.corsConfig.MaxAge))
	}
}

// --- Env helpers ---

// CORSFromEnv reads environment variables and constructs a CORSConfig.
// Returns (cfg, true) if any CORS-related env var is set; otherwise (zero, false).
//
// Env vars:
// - CORS_ALLOWED_ORIGINS: comma-separated list
// - CORS_ALLOWED_METHODS: comma-separated list
// - CORS_ALLOWED_HEADERS: comma-separated list
// - CORS_MAX_AGE: integer seconds
func CORSFromEnv() (CORSConfig, bool) {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	methods := os.Getenv("CORS_ALLOWED_METHODS")
	headers := os.Getenv("CORS_ALLOWED_HEADERS")
	maxAgeStr := os.Getenv("CORS_MAX_AGE")

	var maxAge int
	if maxAgeStr != "" {
		if v, err := strconv.Atoi(maxAgeStr); err == nil {
			maxAge = v
		}
	}

	var allowedOrigins, allowedMethods, allowedHeaders []string
	if origins != "" {
		allowedOrigins = splitAndTrim(origins)
	}
	if methods != "" {
		allowedMethods = splitAndTrim(methods)
	}
	if headers != "" {
		allowedHeaders = splitAndTrim(headers)
	}

	provided := len(allowedOrigins) > 0 || len(allowedMethods) > 0 || len(allowedHeaders) > 0 || maxAge > 0
	if !provided {
		return CORSConfig{}, false
	}

	return CORSConfig{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		MaxAge:         maxAge,
	}, true
}
