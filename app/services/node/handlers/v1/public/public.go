// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/scalefree/business/web/errs"
	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
	"github.com/ardanlabs/scalefree/foundation/events"
	"github.com/ardanlabs/scalefree/foundation/nameservice"
	"github.com/ardanlabs/scalefree/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Miner is the behavior required to start background mining.
type Miner interface {
	SignalStartMining()
}

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Miner  Miner
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new user transaction to the pending pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	tx := toDBTx(ntx)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", tx.From, "to", tx.To, "value", tx.Value)
	h.Ledger.Submit(tx)

	if h.Miner != nil {
		h.Miner.SignalStartMining()
	}

	resp := submitted{
		Status:  "transaction added to pending pool",
		Pending: h.Ledger.PendingCount(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MinePending mines the pending transactions now and rewards the recipient
// in the url. The request context bounds the search.
func (h Handlers) MinePending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	recipient := web.Param(r, "recipient")
	if account, exists := h.NS.Account(recipient); exists {
		recipient = account
	}

	res, err := h.Ledger.MinePending(ctx, recipient)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNonceNotFound):
			return errs.NewTrusted(err, http.StatusConflict)
		case errors.Is(err, database.ErrMiningCancelled):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return err
	}

	return web.Respond(ctx, w, res, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Genesis(), http.StatusOK)
}

// Topology returns the current shape of the peer topology.
func (h Handlers) Topology(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	top := h.Ledger.Topology()
	if top == nil {
		return errs.NewTrusted(errors.New("ledger has no topology"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, top.Snapshot(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.toView(h.Ledger.Pending()), http.StatusOK)
}

// Blocks returns the chain starting with genesis.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Blocks(), http.StatusOK)
}

// BlockByNumber returns the block with the number in the url.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block number: %w", err), http.StatusBadRequest)
	}

	block, err := h.Ledger.GetBlock(num)
	if err != nil {
		if errors.Is(err, database.ErrBlockNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// ValidateChain walks the chain and reports the first block that failed.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cs := chainStatus{
		Valid:      true,
		Length:     h.Ledger.Length(),
		LatestHash: h.Ledger.LatestBlock().Hash,
	}

	if err := h.Ledger.Verify(); err != nil {
		cs.Valid = false
		cs.Error = err.Error()

		var ie *database.IntegrityError
		if errors.As(err, &ie) {
			cs.BadBlock = &ie.Number
		}
	}

	return web.Respond(ctx, w, cs, http.StatusOK)
}

// =============================================================================

func (h Handlers) toView(trans []database.Tx) []tx {
	view := make([]tx, len(trans))
	for i, tran := range trans {
		view[i] = tx{
			From:      tran.From,
			To:        tran.To,
			ToName:    h.NS.Lookup(tran.To),
			Value:     tran.Value,
			Signature: tran.Signature,
			Reward:    tran.Reward,
		}
		if tran.From != "" {
			view[i].FromName = h.NS.Lookup(tran.From)
		}
	}
	return view
}
