package api

// Version is set at build time via ldflags (cmd/authority/main.go).
var Version = "dev"
