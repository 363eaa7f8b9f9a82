// Package public maintains the group of handlers for public access to
// the node.
package public

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tinychain/tinychain/foundation/blockchain/state"
	"github.com/tinychain/tinychain/foundation/events"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Status returns a summary of the node's current state.
func (h Handlers) Status(w http.ResponseWriter, r *http.Request) {
	tipID := ""
	if tip, ok := h.State.RetrieveTip(); ok {
		tipID = tip.ID()
	}

	var peers []string
	for _, p := range h.State.RetrieveKnownPeers().Copy(h.State.RetrieveHost()) {
		peers = append(peers, p.Host)
	}

	respond(w, http.StatusOK, status{
		Height:       h.State.Height(),
		TipBlockID:   tipID,
		MempoolCount: h.State.Mempool().Count(),
		UTXOCount:    h.State.UTXOSet().Count(),
		SideBranches: len(h.State.SideBranches()),
		KnownPeers:   peers,
	})
}

// Chain returns the full active chain.
func (h Handlers) Chain(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.State.RetrieveActiveChain())
}

// Mempool returns the set of pending transaction ids.
func (h Handlers) Mempool(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.State.Mempool().TxIDs())
}

// UTXOs returns the full UTXO set.
func (h Handlers) UTXOs(w http.ResponseWriter, r *http.Request) {
	utxos := h.State.UTXOSet().Copy()

	list := make([]any, 0, len(utxos))
	for _, utxo := range utxos {
		list = append(list, utxo)
	}

	respond(w, http.StatusOK, list)
}

// SubmitTransaction validates a wallet transaction payload and admits it
// to the mempool.
func (h Handlers) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var payload submitTx
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "unable to decode payload")
		return
	}

	if err := check(payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := payload.toTransaction()
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed hex field")
		return
	}

	h.Log.Infow("add wallet tran", "txid", tx.ID())
	if !h.State.AddTxnToMempool(tx) {
		respondError(w, http.StatusBadRequest, "transaction rejected")
		return
	}

	respond(w, http.StatusOK, struct {
		Status string `json:"status"`
		TxID   string `json:"txid"`
	}{"transaction added to mempool", tx.ID()})
}

// Events handles a web socket to provide node events to a client.
func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Errorw("events", "ERROR", err)
		return
	}
	defer c.Close()

	traceID := uuid.NewString()

	ch := h.Evts.Acquire(traceID)
	defer h.Evts.Release(traceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// =============================================================================

func respond(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func respondError(w http.ResponseWriter, statusCode int, msg string) {
	respond(w, statusCode, struct {
		Error string `json:"error"`
	}{msg})
}
