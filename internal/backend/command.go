package backend

import "github.com/rencryptofish/hydra/internal/model"

// ComposeMode distinguishes how Compose's text should be delivered.
type ComposeMode int

const (
	ComposeSubmit ComposeMode = iota // send_text_enter
	ComposeDraft                     // send_keys_literal only, no Enter
)

// Command is one instruction the UI sends to the Backend actor over the
// bounded BackendCommand channel (spec.md §4.3). The UI never blocks on
// its result; command dispatch and snapshot publication are decoupled.
type Command struct {
	Kind CommandKind

	Name  string // session name, for all but Shutdown
	Agent model.AgentKind
	Keys  []string
	Text  string
	Mode  ComposeMode
}

type CommandKind int

const (
	CmdCreateSession CommandKind = iota
	CmdDeleteSession
	CmdSendKeys
	CmdCompose
	CmdForceCapture
	CmdShutdown
)

func CreateSession(name string, agent model.AgentKind) Command {
	return Command{Kind: CmdCreateSession, Name: name, Agent: agent}
}

func DeleteSession(name string) Command {
	return Command{Kind: CmdDeleteSession, Name: name}
}

func SendKeys(name string, keys []string) Command {
	return Command{Kind: CmdSendKeys, Name: name, Keys: keys}
}

func Compose(name, text string, mode ComposeMode) Command {
	return Command{Kind: CmdCompose, Name: name, Text: text, Mode: mode}
}

func ForceCapture(name string) Command {
	return Command{Kind: CmdForceCapture, Name: name}
}

func Shutdown() Command {
	return Command{Kind: CmdShutdown}
}
