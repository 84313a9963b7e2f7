package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/byc-ledger/node/internal/ledger"
	"github.com/byc-ledger/node/internal/logger"
)

// chainView is the JSON shape the dashboard exposes: enough to inspect a
// running node without handing out any signing material.
type chainView struct {
	Height      int             `json:"height"`
	MempoolSize int             `json:"mempool_size"`
	Chain       []ledger.Block  `json:"chain"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveDashboard exposes a read-only view of chain state over HTTP and a
// polling WebSocket feed, bound to addr. It never accepts writes: mining
// and transfers stay on the operator console.
func serveDashboard(addr string, led *ledger.Ledger) {
	if addr == "" {
		return
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/chain", func(w http.ResponseWriter, r *http.Request) {
		writeChainView(w, led)
	}).Methods("GET")
	router.HandleFunc("/ws/chain", func(w http.ResponseWriter, r *http.Request) {
		serveChainWS(w, r, led)
	})

	server := &http.Server{Addr: addr, Handler: router}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("dashboard server stopped", zap.Error(err))
	}
}

func writeChainView(w http.ResponseWriter, led *ledger.Ledger) {
	view := chainView{
		Height:      led.ChainLength(),
		MempoolSize: led.MempoolSize(),
		Chain:       led.ChainSnapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// serveChainWS pushes a fresh chainView to the client every few seconds
// until the connection closes. There is nothing for the client to send;
// any inbound message is read and discarded so the socket stays alive.
func serveChainWS(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		view := chainView{
			Height:      led.ChainLength(),
			MempoolSize: led.MempoolSize(),
			Chain:       led.ChainSnapshot(),
		}
		if err := conn.WriteJSON(view); err != nil {
			return
		}
	}
}
