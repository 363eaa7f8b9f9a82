// Package handlers manages the different versions of the node's HTTP
// status API.
package handlers

import (
	"net/http"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/tinychain/tinychain/app/services/node/handlers/v1/public"
	"github.com/tinychain/tinychain/foundation/blockchain/state"
	"github.com/tinychain/tinychain/foundation/events"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicMux constructs a mux with all the public API routes.
func PublicMux(cfg MuxConfig) http.Handler {
	mux := httptreemux.NewContextMux()

	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	mux.Handler(http.MethodGet, "/v1/node/status", http.HandlerFunc(pbl.Status))
	mux.Handler(http.MethodGet, "/v1/chain", http.HandlerFunc(pbl.Chain))
	mux.Handler(http.MethodGet, "/v1/mempool", http.HandlerFunc(pbl.Mempool))
	mux.Handler(http.MethodGet, "/v1/utxo", http.HandlerFunc(pbl.UTXOs))
	mux.Handler(http.MethodPost, "/v1/tx", http.HandlerFunc(pbl.SubmitTransaction))
	mux.Handler(http.MethodGet, "/v1/events", http.HandlerFunc(pbl.Events))

	return mux
}
