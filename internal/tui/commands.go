package tui

import (
	"strings"
)

// slashCommand is a parsed "/name arg" line
type slashCommand struct {
	name string
	arg  string
}

// Slash commands understood by the chat input
const (
	cmdNew      = "new"
	cmdSwitch   = "switch"
	cmdDelete   = "delete"
	cmdClear    = "clear"
	cmdClearAll = "clearall"
	cmdImage    = "image"
	cmdExport   = "export"
	cmdCopy     = "copy"
	cmdHelp     = "help"
	cmdQuit     = "quit"
)

var commandAliases = map[string]string{
	"exit": cmdQuit,
	"q":    cmdQuit,
	"sw":   cmdSwitch,
	"rm":   cmdDelete,
	"img":  cmdImage,
}

// parseCommand returns the command on a line starting with "/". Plain text
// and unknown commands report ok=false.
func parseCommand(input string) (slashCommand, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return slashCommand{}, false
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	name = strings.ToLower(name)
	if alias, ok := commandAliases[name]; ok {
		name = alias
	}

	switch name {
	case cmdNew, cmdSwitch, cmdDelete, cmdClear, cmdClearAll, cmdImage, cmdExport, cmdCopy, cmdHelp, cmdQuit:
		return slashCommand{name: name, arg: strings.TrimSpace(arg)}, true
	}
	return slashCommand{}, false
}

// helpText lists the slash commands
func helpText() string {
	return strings.Join([]string{
		"/new              새 대화",
		"/switch <ref>     대화 전환 (id, #N, @last, 제목 일부)",
		"/delete [ref]     대화 삭제",
		"/clear            현재 대화 비우기",
		"/clearall         모든 대화 삭제",
		"/image <path>     이미지 업로드",
		"/export [all|md]  내보내기",
		"/copy             마지막 답변 복사",
		"/quit             종료",
	}, "\n")
}
