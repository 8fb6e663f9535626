package main

import (
	"log"
	"net/http"
	"os"

	"github.com/luismarketmedia/lets-talk-sub000/internal/logging"
	"github.com/luismarketmedia/lets-talk-sub000/internal/server"
	"github.com/luismarketmedia/lets-talk-sub000/internal/signaling"
)

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

func main() {
	logging.Init()

	hub := signaling.NewHub(signaling.NewRegistry())

	// The hub's event loop is the single owner of all room state.
	go hub.Run()

	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ws", server.ServeWs(hub))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting signaling server on http://localhost:%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
