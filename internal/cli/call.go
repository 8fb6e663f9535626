package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
	"github.com/luismarketmedia/lets-talk-sub000/internal/session"
	"github.com/luismarketmedia/lets-talk-sub000/internal/ui"
)

type callOptions struct {
	IsHost      bool
	AutoApprove bool
}

type rosterEntry struct {
	name  string
	audio bool
	video bool
}

// readCommands feeds stdin lines into a channel so the call loop can select
// over user input alongside signaling events.
func readCommands() <-chan string {
	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- strings.TrimSpace(scanner.Text())
		}
		close(commands)
	}()
	return commands
}

func printHelp(isHost bool) {
	fmt.Println(ui.MutedStyle.Render("Commands: who, chat <text>, react <emoji>, mute, video, share, quit"))
	if isHost {
		fmt.Println(ui.MutedStyle.Render("Host:     approve <id>, reject <id>"))
	}
}

// runCall is the in-call loop shared by host and guest: it reacts to
// coordinator events, prints widget traffic, and executes REPL commands.
func runCall(ctx *ConnectionContext, opts callOptions) error {
	roster := make(map[string]*rosterEntry)
	pending := make(map[string]string) // socketId -> display name

	printHelp(opts.IsHost)
	commands := readCommands()

	for {
		select {
		case event, ok := <-ctx.Coord.Events():
			if !ok {
				return nil
			}
			handleEvent(ctx, event, roster)

		case req, ok := <-ctx.Handler.JoinRequest:
			if !ok {
				return nil
			}
			if opts.AutoApprove {
				decide(ctx, protocol.TypeApproveJoin, req.SocketID)
				rememberName(roster, req.SocketID, req.UserName)
				ui.PrintInfof("Auto-approved %s", req.UserName)
				continue
			}
			pending[req.SocketID] = req.UserName
			ui.PrintInfof("%s %s wants to join (id %s). Type: approve %s",
				ui.IconPeer, req.UserName, shortID(req.SocketID), shortID(req.SocketID))

		case cancelled, ok := <-ctx.Handler.JoinRequestCancelled:
			if !ok {
				return nil
			}
			name := pending[cancelled.SocketID]
			delete(pending, cancelled.SocketID)
			if name != "" {
				ui.PrintInfof("%s left before you decided", name)
			}

		case state, ok := <-ctx.Handler.StateChanged:
			if !ok {
				return nil
			}
			entry := roster[state.ParticipantID]
			if entry == nil {
				entry = &rosterEntry{}
				roster[state.ParticipantID] = entry
			}
			entry.audio = state.IsAudioEnabled
			entry.video = state.IsVideoEnabled

		case widget, ok := <-ctx.Handler.RoomMessage:
			if !ok {
				return nil
			}
			ui.PrintInfof("[%s] %s from %s", widget.Event, string(widget.Data), shortID(widget.Sender))

		case line, ok := <-commands:
			if !ok {
				return nil
			}
			if quit := runCommand(ctx, opts, line, roster, pending); quit {
				return nil
			}
		}
	}
}

func handleEvent(ctx *ConnectionContext, event session.Event, roster map[string]*rosterEntry) {
	switch event.Kind {
	case session.EventPeerConnected:
		if _, ok := roster[event.Remote]; !ok {
			roster[event.Remote] = &rosterEntry{audio: true, video: true}
		}
		ui.PrintSuccessf("Peer %s connected", shortID(event.Remote))

	case session.EventPeerLeft:
		delete(roster, event.Remote)
		ui.PrintInfof("Peer %s left", shortID(event.Remote))

	case session.EventRemoteTrack:
		// Headless client: keep the jitter buffer drained. A UI would hand
		// the track to its renderer instead.
		go drainTrack(event.Track)

	case session.EventChat:
		fmt.Printf("%s %s: %s\n", ui.IconChat, shortID(event.Remote), event.Chat.Text)

	case session.EventReaction:
		fmt.Printf("%s from %s\n", event.Reaction.Emoji, shortID(event.Remote))

	case session.EventScreenShareEnded:
		ui.PrintInfo("Screen share ended")

	case session.EventJoinError:
		ui.PrintError(event.Message)
	}
}

func runCommand(ctx *ConnectionContext, opts callOptions, line string, roster map[string]*rosterEntry, pending map[string]string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "q", "exit":
		ctx.Coord.EndCall()
		ui.PrintInfo("Call ended")
		return true

	case "who":
		rows := []ui.ParticipantRow{{
			ID:     ctx.Coord.SelfID(),
			Name:   ctx.Config.DisplayName,
			Audio:  ctx.Coord.AudioEnabled(),
			Video:  ctx.Coord.VideoEnabled(),
			IsSelf: true,
			IsHost: opts.IsHost,
		}}
		for id, entry := range roster {
			rows = append(rows, ui.ParticipantRow{ID: id, Name: entry.name, Audio: entry.audio, Video: entry.video})
		}
		for id, name := range pending {
			rows = append(rows, ui.ParticipantRow{ID: id, Name: name, Pending: true})
		}
		ui.RenderParticipants(rows)

	case "chat":
		text := strings.TrimSpace(strings.TrimPrefix(line, "chat"))
		if text == "" {
			ui.PrintWarning("Usage: chat <text>")
			break
		}
		if err := ctx.Coord.SendChat(text); err != nil {
			ui.PrintError(err.Error())
		}

	case "react":
		if len(fields) < 2 {
			ui.PrintWarning("Usage: react <emoji>")
			break
		}
		if err := ctx.Coord.SendReaction(fields[1]); err != nil {
			ui.PrintError(err.Error())
		}

	case "mute":
		enabled, err := ctx.Coord.ToggleAudio()
		if err != nil {
			ui.PrintError(err.Error())
			break
		}
		ui.PrintInfof("%s Microphone %s", ui.IconMic, onOffWord(enabled))

	case "video":
		enabled, err := ctx.Coord.ToggleVideo()
		if err != nil {
			ui.PrintError(err.Error())
			break
		}
		ui.PrintInfof("%s Camera %s", ui.IconCamera, onOffWord(enabled))

	case "share":
		sharing, err := ctx.Coord.ToggleScreenShare()
		if err != nil {
			ui.PrintError(err.Error())
			break
		}
		if sharing {
			ui.PrintInfof("%s Screen sharing started", ui.IconScreen)
		} else {
			ui.PrintInfof("%s Screen sharing stopped", ui.IconScreen)
		}

	case "approve", "reject":
		if !opts.IsHost {
			ui.PrintWarning("Only the host can decide join requests")
			break
		}
		if len(fields) < 2 {
			ui.PrintWarning(fmt.Sprintf("Usage: %s <id>", fields[0]))
			break
		}
		id := resolveID(fields[1], pending)
		if id == "" {
			ui.PrintWarning("No pending request matches that id")
			break
		}
		t := protocol.TypeApproveJoin
		if fields[0] == "reject" {
			t = protocol.TypeRejectJoin
		}
		decide(ctx, t, id)
		if t == protocol.TypeApproveJoin {
			rememberName(roster, id, pending[id])
		}
		delete(pending, id)

	case "help", "?":
		printHelp(opts.IsHost)

	default:
		ui.PrintWarning("Unknown command. Type 'help' for the list.")
	}

	return false
}

func decide(ctx *ConnectionContext, t protocol.Type, socketID string) {
	ctx.Client.Send(protocol.MustNew(t, protocol.JoinDecisionPayload{
		RoomID:   ctx.Coord.RoomID(),
		SocketID: socketID,
	}))
}

// rememberName seeds the roster entry for a just-approved peer so the table
// shows its display name once the link comes up.
func rememberName(roster map[string]*rosterEntry, id, name string) {
	if entry := roster[id]; entry != nil {
		entry.name = name
		return
	}
	roster[id] = &rosterEntry{name: name, audio: true, video: true}
}

// resolveID matches a typed id or prefix against the pending set.
func resolveID(input string, pending map[string]string) string {
	if _, ok := pending[input]; ok {
		return input
	}
	for id := range pending {
		if strings.HasPrefix(id, input) {
			return id
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func onOffWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func drainTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}
