package server

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// AliasConfig holds parsed alias configuration.
type AliasConfig struct {
	CommandAliases map[string]string // alias -> target (may include /switch)
	FlagAliases    map[string]string // alias -> canonical flag name
	FuncAliases    map[string]string // alias -> canonical function name
	AttrAliases    map[string]string // alias -> canonical attr name
	BadNames       []string          // forbidden player names
}

// LoadAliasConfig parses one or more alias config files and merges them.
func LoadAliasConfig(paths ...string) (*AliasConfig, error) {
	ac := &AliasConfig{
		CommandAliases: make(map[string]string),
		FlagAliases:    make(map[string]string),
		FuncAliases:    make(map[string]string),
		AttrAliases:    make(map[string]string),
	}

	for _, path := range paths {
		if err := ac.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return ac, nil
}

func (ac *AliasConfig) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		directive := strings.ToLower(fields[0])
		switch directive {
		case "alias":
			if len(fields) < 3 {
				log.Printf("aliasconf: %s:%d: alias requires 2 arguments", path, lineNo)
				continue
			}
			ac.CommandAliases[strings.ToLower(fields[1])] = fields[2]

		case "flag_alias":
			if len(fields) < 3 {
				continue
			}
			ac.FlagAliases[strings.ToLower(fields[1])] = strings.ToLower(fields[2])

		case "function_alias":
			if len(fields) < 3 {
				continue
			}
			ac.FuncAliases[strings.ToLower(fields[1])] = strings.ToLower(fields[2])

		case "attr_alias":
			if len(fields) < 3 {
				continue
			}
			ac.AttrAliases[strings.ToLower(fields[1])] = strings.ToLower(fields[2])

		case "bad_name":
			ac.BadNames = append(ac.BadNames, strings.ToLower(fields[1]))

		default:
			// Unknown directives belong to other config layers.
		}
	}
	return scanner.Err()
}

// ApplyAliasConfig applies a loaded alias config to the game's command
// table, flag table, and attribute name map.
func (g *Game) ApplyAliasConfig(ac *AliasConfig) {
	cmdCount, flagCount, attrCount := 0, 0, 0

	for alias, target := range ac.CommandAliases {
		// Target may carry switches, e.g. "@trigger/now".
		targetCmd := target
		var switches string
		if slashIdx := strings.IndexByte(target, '/'); slashIdx >= 0 {
			targetCmd = target[:slashIdx]
			switches = target[slashIdx+1:]
		}

		cmd := g.Commands.Lookup(targetCmd)
		if cmd == nil {
			log.Printf("aliasconf: alias %q -> %q: target command not found", alias, target)
			continue
		}

		if switches == "" {
			g.Commands.Bind(alias, cmd)
			cmdCount++
			continue
		}

		// Fold the alias's switches into a copy of the command so the
		// alias behaves like typing them every time.
		folded := *cmd
		ok := true
		for _, sw := range strings.Split(switches, "/") {
			// Access checks wait until someone runs the alias; only the
			// name has to resolve here.
			key := SwitchNotFound
			for i := range cmd.Switches {
				if minMatch(sw, cmd.Switches[i].Name, cmd.Switches[i].MinLen) {
					key = cmd.Switches[i].Flag
					break
				}
			}
			if key == SwitchNotFound {
				log.Printf("aliasconf: alias %q -> %q: unknown switch %q", alias, target, sw)
				ok = false
				break
			}
			if key&SwMultiple != 0 {
				folded.Extra |= key &^ SwMultiple
			} else {
				folded.Extra = key | SwGotUnique
			}
		}
		if ok {
			g.Commands.Bind(alias, &folded)
			cmdCount++
		}
	}

	for alias, target := range ac.FlagAliases {
		if def, ok := FlagTable[strings.ToUpper(target)]; ok {
			FlagTable[strings.ToUpper(alias)] = def
			flagCount++
		} else {
			log.Printf("aliasconf: flag alias %q -> %q: target flag not found", alias, target)
		}
	}

	for alias, target := range ac.AttrAliases {
		num := g.ResolveAttrNum(target)
		if num < 0 {
			log.Printf("aliasconf: attr alias %q -> %q: target attr not found", alias, target)
			continue
		}
		aliasUpper := strings.ToUpper(alias)
		g.DB.AttrByName[aliasUpper] = &gamedb.AttrDef{Number: num, Name: aliasUpper}
		attrCount++
	}

	for alias, target := range ac.FuncAliases {
		if g.FuncAliases == nil {
			g.FuncAliases = make(map[string]string)
		}
		g.FuncAliases[strings.ToUpper(alias)] = strings.ToUpper(target)
	}

	g.BadNames = append(g.BadNames, ac.BadNames...)

	log.Printf("CONFIG: aliases applied: %d commands, %d flags, %d attrs, %d functions, %d bad names",
		cmdCount, flagCount, attrCount, len(ac.FuncAliases), len(ac.BadNames))
}

// IsBadName reports whether a player name is forbidden.
func (g *Game) IsBadName(name string) bool {
	lower := strings.ToLower(name)
	for _, bad := range g.BadNames {
		if wildMatchCI(bad, lower) {
			return true
		}
	}
	return false
}
