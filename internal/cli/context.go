package cli

import (
	"github.com/luismarketmedia/lets-talk-sub000/internal/config"
	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/session"
	"github.com/luismarketmedia/lets-talk-sub000/internal/sigclient"
)

// ConnectionContext bundles everything a command needs once connected: the
// websocket client, the typed message handler and the session coordinator.
type ConnectionContext struct {
	Client  *sigclient.Client
	Handler *sigclient.Handler
	Config  *config.Config
	Coord   *session.Coordinator

	done chan struct{}
}

// NewConnectionContext connects to the hub and starts the handler and
// coordinator loops.
func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := sigclient.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return nil, session.NewError("connect to server", err)
	}

	handler := sigclient.NewHandler(client)
	go handler.Start()

	coord := session.NewCoordinator(client, media.NewSyntheticCapturer(), session.NewRTCConfiguration(cfg))

	ctx := &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
		Coord:   coord,
		done:    make(chan struct{}),
	}

	go coord.Run(handler, ctx.done)

	return ctx, nil
}

func (c *ConnectionContext) Close() {
	close(c.done)
	c.Coord.EndCall()
	if c.Client != nil {
		c.Client.Close()
	}
}
