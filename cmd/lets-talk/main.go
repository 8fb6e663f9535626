package main

import (
	"github.com/luismarketmedia/lets-talk-sub000/internal/cli"
	"github.com/luismarketmedia/lets-talk-sub000/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cli.Execute()
}
