package jsonrpc

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/greenpoints/greenledger/logx"
)

// JSON-RPC Method name constants
const (
	// Audit methods
	MethodAuditAppend = "audit.append"

	// Transaction methods
	MethodTxSubmit  = "tx.submit"
	MethodTxPending = "tx.pending"
	MethodTxRemove  = "tx.remove"
	MethodTxGet     = "tx.get"

	// Block methods
	MethodBlockFinalize = "block.finalize"
	MethodBlockLatest   = "block.latest"
	MethodBlockGet      = "block.get"

	// Account methods
	MethodAccountBalance     = "account.balance"
	MethodAccountHistory     = "account.history"
	MethodAccountLeaderboard = "account.leaderboard"
	MethodAccountNewAddress  = "account.newaddress"

	// Chain methods
	MethodChainValidate = "chain.validate"
	MethodChainStats    = "chain.stats"

	// Admin methods
	MethodAdminSetDifficulty = "admin.setdifficulty"
	MethodAdminSetReward     = "admin.setreward"
	MethodAdminForceMine     = "admin.forcemine"
	MethodAdminActions       = "admin.actions"
	MethodAdminExport        = "admin.export"

	// Health methods
	MethodHealthCheck = "health.check"
)

func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		logx.Debug("RPC", fmt.Sprintf("X-Forwarded-For: %s", xff))
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
