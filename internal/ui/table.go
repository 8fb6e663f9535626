package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ParticipantRow is one row of the in-call participant table.
type ParticipantRow struct {
	ID      string
	Name    string
	Audio   bool
	Video   bool
	IsSelf  bool
	IsHost  bool
	Pending bool
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// RenderParticipants prints the current room roster using go-pretty.
func RenderParticipants(rows []ParticipantRow) {
	if len(rows) == 0 {
		fmt.Println(MutedStyle.Render("No participants"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "Mic", "Camera", "Role"})

	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = "-"
		}
		role := ""
		switch {
		case r.Pending:
			role = "waiting"
		case r.IsHost:
			role = "host"
		}
		if r.IsSelf {
			name += " (you)"
		}

		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}

		t.AppendRow(table.Row{id, name, onOff(r.Audio), onOff(r.Video), role})
	}

	t.Render()
}

// RoomInfo is the shareable room banner shown to the host.
type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Ready!\n\n%s Room Code:  %s\n%s Room Link:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconLink, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}

func RenderRoomInfo(roomID, roomLink string) {
	info := &RoomInfo{RoomID: roomID, RoomLink: roomLink}
	fmt.Println(info.View())
}
