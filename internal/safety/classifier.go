// Package safety classifies shell commands as read-only or mutating.
// The classification is pattern-based; it informs the confirmation policy
// and is not a sandbox.
package safety

import (
	"regexp"
	"strings"
)

// readOnlyCommands are head tokens that only inspect state.
var readOnlyCommands = map[string]bool{
	"ls": true, "cat": true, "pwd": true, "echo": true, "grep": true,
	"find": true, "head": true, "tail": true, "wc": true, "which": true,
	"whoami": true, "date": true, "df": true, "du": true, "ps": true,
	"env": true, "printenv": true, "file": true, "stat": true,
	"uname": true, "id": true, "tree": true, "less": true, "man": true,
	"history": true, "type": true, "uptime": true, "free": true,
	"hostname": true, "basename": true, "dirname": true, "realpath": true,
	"readlink": true, "sort": true, "uniq": true, "cut": true,
	"awk": true, "sed": true, "diff": true, "cmp": true, "md5sum": true,
	"sha256sum": true, "strings": true, "xxd": true, "nproc": true,
}

// readOnlyGitSubcommands are git verbs that never touch the work tree.
var readOnlyGitSubcommands = map[string]bool{
	"status": true, "log": true, "diff": true, "show": true,
	"branch": true, "remote": true, "blame": true, "shortlog": true,
	"describe": true, "rev-parse": true, "ls-files": true, "reflog": true,
}

var (
	redirectPattern = regexp.MustCompile(`(^|[^>])>{1,2}`)
	segmentSplit    = regexp.MustCompile(`&&|\|\||;|\|`)
)

// IsMutating reports whether command may change system state. A compound
// command is mutating if any segment is. Unknown commands, redirections,
// and sudo all classify as mutating; only a known read-only pipeline is
// exempt from confirmation.
func IsMutating(command string) bool {
	if redirectPattern.MatchString(command) {
		return true
	}

	for _, segment := range segmentSplit.Split(command, -1) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		head := baseName(fields[0])

		switch {
		case head == "sudo":
			return true
		case head == "git":
			if len(fields) < 2 || !readOnlyGitSubcommands[fields[1]] {
				return true
			}
		case head == "sed":
			// sed is read-only unless editing in place.
			for _, f := range fields[1:] {
				if strings.HasPrefix(f, "-i") {
					return true
				}
			}
		default:
			if !readOnlyCommands[head] {
				return true
			}
		}
	}
	return false
}

func baseName(cmd string) string {
	if idx := strings.LastIndexByte(cmd, '/'); idx >= 0 {
		return cmd[idx+1:]
	}
	return cmd
}
