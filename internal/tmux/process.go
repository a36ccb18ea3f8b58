package tmux

import (
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// maxAncestorDepth caps an ancestor walk so a cyclic or corrupt process
// snapshot can never loop forever.
const maxAncestorDepth = 12

type procInfo struct {
	pid  int
	ppid int
	args string
}

// procTable maps pid to its process info from one ps snapshot.
type procTable map[int]procInfo

// psGroup collapses concurrent snapshot requests into one ps invocation.
var psGroup singleflight.Group

// snapshotProcesses reads the whole process table in a single "ps" call.
// Concurrent callers share one invocation. Returns nil on any error since
// process info is best-effort, never fatal.
func snapshotProcesses() procTable {
	v, err, _ := psGroup.Do("ps", func() (any, error) {
		// "pid=" / "ppid=" / "args=" suppress headers; args is the full command line.
		cmd := exec.Command("ps", "-eo", "pid=,ppid=,args=")
		out, err := cmd.Output()
		if err != nil {
			return nil, err
		}
		return parseProcessTable(string(out)), nil
	})
	if err != nil {
		return nil
	}
	return v.(procTable)
}

// parseProcessTable parses ps output into a pid-keyed table. Lines are
// "PID PPID ARGS..." with variable whitespace; ARGS can contain spaces.
func parseProcessTable(out string) procTable {
	table := make(procTable)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		// Everything after the second field is the command line.
		args := strings.Join(fields[2:], " ")
		table[pid] = procInfo{pid: pid, ppid: ppid, args: args}
	}
	return table
}

// ancestors walks the ppid chain upward from pid, nearest first. A gap in
// the chain (parent missing from the snapshot) is recorded as
// UnknownAncestor and ends the walk; pid 0/1 ends it normally.
func (t procTable) ancestors(pid int) []string {
	if t == nil {
		return nil
	}
	var chain []string
	cur, ok := t[pid]
	if !ok {
		return nil
	}
	for depth := 0; depth < maxAncestorDepth; depth++ {
		parent := cur.ppid
		if parent <= 1 {
			break
		}
		p, ok := t[parent]
		if !ok {
			chain = append(chain, UnknownAncestor)
			break
		}
		chain = append(chain, p.args)
		cur = p
	}
	return chain
}
