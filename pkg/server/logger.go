package server

import (
	"fmt"
	"log"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// logName renders an object for the command logs as Name(#dbref).
func (g *Game) logName(ref gamedb.DBRef) string {
	name := g.Name(ref)
	if name == "" {
		name = "<garbage>"
	}
	return fmt.Sprintf("%s(#%d)", name, ref)
}

// logWithLoc appends the invoker's location when configured to.
func (g *Game) logWithLoc(tag string, player gamedb.DBRef, command string) {
	if g.Conf.LogWithLoc && g.hasLocation(player) {
		log.Printf("%s: %s [in %s] entered: %s", tag, g.logName(player), g.logName(g.Location(player)), command)
	} else {
		log.Printf("%s: %s entered: %s", tag, g.logName(player), command)
	}
}

// logBadCommand records a command nothing matched.
func (g *Game) logBadCommand(player gamedb.DBRef, command string) {
	if g.Conf.LogBadCommands {
		g.logWithLoc("CMD BAD", player, command)
	}
	if g.Metrics != nil {
		g.Metrics.BadCommands.Inc()
	}
}

// logSuspectCommand records commands from SUSPECT objects, or every
// command when full command logging is on.
func (g *Game) logSuspectCommand(player gamedb.DBRef, command string) {
	if g.Conf.LogAllCommands {
		g.logWithLoc("CMD ALL", player, command)
		return
	}
	if g.Conf.LogSuspectCmds && Suspect(g, player) {
		g.logWithLoc("CMD SUSP", player, command)
	}
}

// logCPUOverrun records a queued command that ran past the CPU threshold.
func (g *Game) logCPUOverrun(player, enactor gamedb.DBRef, secs float64, command string) {
	var where string
	if g.hasLocation(player) {
		where = fmt.Sprintf(" [in %s]", g.logName(g.Location(player)))
	}
	log.Printf("CMD CPU: %s%s queued command taking %.2f secs (enactor #%d): %s",
		g.logName(player), where, secs, enactor, command)
	if g.Metrics != nil {
		g.Metrics.CPUOverruns.Inc()
	}
}
