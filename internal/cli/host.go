package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/luismarketmedia/lets-talk-sub000/internal/config"
	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/roomid"
	"github.com/luismarketmedia/lets-talk-sub000/internal/ui"
)

var (
	flagHostDomain      string
	flagHostInsecure    bool
	flagHostName        string
	flagHostSTUN        string
	flagHostTURN        string
	flagHostTURNUser    string
	flagHostTURNPass    string
	flagHostAutoApprove bool
)

var hostCmd = &cobra.Command{
	Use:     "host [room-code]",
	Aliases: []string{"h"},
	Short:   "Create a room and wait for participants",
	Long: `Create a room and become its host. A shareable room code is generated
unless you pass your own. Guests who ask to join wait until you approve them.

Examples:
  lets-talk host
  lets-talk host harbor-velvet-sparrow
  lets-talk host --auto-approve`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := ""
		if len(args) == 1 {
			roomID = args[0]
		}
		return hostRoom(roomID)
	},
}

func hostRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:      flagHostDomain,
		Insecure:    flagHostInsecure,
		DisplayName: flagHostName,
		STUNServer:  flagHostSTUN,
		TURNServer:  flagHostTURN,
		TURNUser:    flagHostTURNUser,
		TURNPass:    flagHostTURNPass,
	})
	if err != nil {
		return err
	}

	if roomID == "" {
		roomID = roomid.New()
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		stopSpinner()
		return err
	}
	defer ctx.Close()
	stopSpinner()

	if err := ctx.Coord.JoinRoom(roomID); err != nil {
		var cerr *media.CaptureError
		if errors.As(err, &cerr) {
			return errors.New(cerr.UserMessage())
		}
		return err
	}

	ui.RenderRoomInfo(roomID, cfg.GetRoomLink(roomID))

	return runCall(ctx, callOptions{
		IsHost:      true,
		AutoApprove: flagHostAutoApprove,
	})
}

func init() {
	hostCmd.Flags().StringVarP(&flagHostDomain, "domain", "d", "", "Signaling server domain")
	hostCmd.Flags().BoolVar(&flagHostInsecure, "insecure", false, "Use ws:// instead of wss://")
	hostCmd.Flags().StringVarP(&flagHostName, "name", "n", "", "Display name")
	hostCmd.Flags().StringVar(&flagHostSTUN, "stun", "", "STUN server URL")
	hostCmd.Flags().StringVar(&flagHostTURN, "turn", "", "TURN server URL")
	hostCmd.Flags().StringVar(&flagHostTURNUser, "turn-user", "", "TURN username")
	hostCmd.Flags().StringVar(&flagHostTURNPass, "turn-pass", "", "TURN password")
	hostCmd.Flags().BoolVar(&flagHostAutoApprove, "auto-approve", false, "Approve every join request automatically")

	rootCmd.AddCommand(hostCmd)
}
