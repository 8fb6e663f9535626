package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/luismarketmedia/lets-talk-sub000/internal/config"
	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/session"
	"github.com/luismarketmedia/lets-talk-sub000/internal/ui"
)

var (
	flagJoinDomain   string
	flagJoinInsecure bool
	flagJoinName     string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
)

var joinCmd = &cobra.Command{
	Use:     "join <room-code>",
	Aliases: []string{"j"},
	Short:   "Ask to join an existing room",
	Long: `Request entry to a room. The host sees your display name and decides;
you wait until approved or rejected.

Examples:
  lets-talk join harbor-velvet-sparrow --name Bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:      flagJoinDomain,
		Insecure:    flagJoinInsecure,
		DisplayName: flagJoinName,
		STUNServer:  flagJoinSTUN,
		TURNServer:  flagJoinTURN,
		TURNUser:    flagJoinTURNUser,
		TURNPass:    flagJoinTURNPass,
	})
	if err != nil {
		return err
	}

	name := cfg.DisplayName
	if name == "" {
		name = "guest"
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		stopSpinner()
		return err
	}
	defer ctx.Close()
	stopSpinner()

	if err := ctx.Coord.RequestJoinRoom(roomID, name); err != nil {
		var cerr *media.CaptureError
		if errors.As(err, &cerr) {
			return errors.New(cerr.UserMessage())
		}
		return err
	}

	waiting := ui.NewWaitingSpinner("Waiting for the host to let you in...")
	waiting.Start()

	for event := range ctx.Coord.Events() {
		switch event.Kind {
		case session.EventJoinApproved:
			waiting.Success("You're in!")
			return runCall(ctx, callOptions{})

		case session.EventJoinRejected:
			waiting.Error("The host turned you away.")
			return nil

		case session.EventJoinError:
			waiting.Error(event.Message)
			return nil
		}
	}

	waiting.Error("Connection lost while waiting.")
	return nil
}

func init() {
	joinCmd.Flags().StringVarP(&flagJoinDomain, "domain", "d", "", "Signaling server domain")
	joinCmd.Flags().BoolVar(&flagJoinInsecure, "insecure", false, "Use ws:// instead of wss://")
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name")
	joinCmd.Flags().StringVar(&flagJoinSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagJoinTURN, "turn", "", "TURN server URL")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")

	rootCmd.AddCommand(joinCmd)
}
