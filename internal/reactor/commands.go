package reactor

import (
	"strings"
)

// Command is a recognized bot command.
type Command int

const (
	CommandHelp Command = iota + 1
	CommandStats
)

// commandSet lists the commands in menu order.
var commandSet = []Command{CommandHelp, CommandStats}

const commandsHeader = "支持以下命令:"

// Name returns the command name without the leading slash.
func (c Command) Name() string {
	switch c {
	case CommandHelp:
		return "help"
	case CommandStats:
		return "stats"
	}
	return ""
}

// Description is the one-line help text shown in /help and the menu.
func (c Command) Description() string {
	switch c {
	case CommandHelp:
		return "显示帮助信息."
	case CommandStats:
		return "查看阿鸽打统计."
	}
	return ""
}

func (c Command) String() string { return c.Name() }

// Commands returns every recognized command in menu order.
func Commands() []Command {
	out := make([]Command, len(commandSet))
	copy(out, commandSet)
	return out
}

// CommandDescriptions renders the /help text.
func CommandDescriptions() string {
	var sb strings.Builder
	sb.WriteString(commandsHeader)
	sb.WriteString("\n")
	for _, c := range commandSet {
		sb.WriteString("\n/")
		sb.WriteString(c.Name())
		sb.WriteString(" — ")
		sb.WriteString(c.Description())
	}
	return sb.String()
}

// LookupCommand maps a bare command name to a Command.
func LookupCommand(name string) (Command, bool) {
	for _, c := range commandSet {
		if c.Name() == name {
			return c, true
		}
	}
	return 0, false
}

// ParseCommand recognizes "/name" or "/name@bot" at the start of text.
// A command addressed to another bot is not ours and yields false.
// Arguments after the command are ignored.
func ParseCommand(text, botUsername string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return 0, false
	}
	token := strings.Fields(text)[0][1:]
	name, mention, addressed := strings.Cut(token, "@")
	if addressed && !strings.EqualFold(mention, botUsername) {
		return 0, false
	}
	return LookupCommand(name)
}
