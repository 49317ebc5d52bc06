package commandutil

import (
	"strings"
	"unicode"
)

const (
	CmdListing = "/listing"
	CmdLoad    = "/load"
	CmdRole    = "/role"
	CmdLang    = "/lang"
	CmdShow    = "/show"
	CmdConfirm = "/confirm"
	CmdEdit    = "/edit"
	CmdReset   = "/reset"
	CmdHelp    = "/help"
	CmdExit    = "/exit"
)

// Aliases maps every accepted spelling to its canonical command. Bare words
// are not aliased so that a message like "confirm" stays a message.
var Aliases = map[string]string{
	CmdListing:  CmdListing,
	"/sell":     CmdListing,
	CmdLoad:     CmdLoad,
	CmdRole:     CmdRole,
	CmdLang:     CmdLang,
	"/language": CmdLang,
	CmdShow:     CmdShow,
	"/status":   CmdShow,
	CmdConfirm:  CmdConfirm,
	"/accept":   CmdConfirm,
	CmdEdit:     CmdEdit,
	"/back":     CmdEdit,
	CmdReset:    CmdReset,
	"/new":      CmdReset,
	CmdHelp:     CmdHelp,
	"/?":        CmdHelp,
	CmdExit:     CmdExit,
	"/quit":     CmdExit,
	"/q":        CmdExit,
}

// HelpLines describes the commands for REPL and TUI help output.
func HelpLines() []string {
	return []string{
		"<message>             send a negotiation message",
		"/listing <text>       create a listing from a free-text description",
		"/load <path>          load a listing JSON file",
		"/role <seller|buyer>  choose your side",
		"/lang <code>          switch language (en, hi, bn, ta, ...)",
		"/show                 show listing, offer and stage",
		"/confirm              confirm the agreed terms and close the deal",
		"/edit                 reopen terms while confirming",
		"/reset                start a new negotiation on the same listing",
		"/help                 show this help",
		"/exit                 quit",
	}
}

// IsCommand reports whether line should be parsed as a command.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// Parse splits a command line into command and argument tail.
func Parse(line string, aliases map[string]string) (command string, arg string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}

	splitAt := strings.IndexFunc(line, unicode.IsSpace)
	if splitAt == -1 {
		return normalize(line, aliases), ""
	}
	cmd := normalize(line[:splitAt], aliases)
	return cmd, strings.TrimSpace(line[splitAt+1:])
}

func normalize(cmd string, aliases map[string]string) string {
	cmd = strings.ToLower(cmd)
	if len(aliases) == 0 {
		return cmd
	}
	if normalized, ok := aliases[cmd]; ok {
		return normalized
	}
	return cmd
}
