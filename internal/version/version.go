package version

// Version is the current version of the lets-talk CLI.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/luismarketmedia/lets-talk-sub000/internal/version.Version=v1.0.0'"
var Version = "dev"
