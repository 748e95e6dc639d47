package server

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
	"gopkg.in/yaml.v3"
)

// GameConf holds game-level configuration parameters.
// Supports both YAML (.yaml/.yml) and legacy MUSH text (.conf) formats.
type GameConf struct {
	// --- Identity ---
	MudName string `yaml:"mud_name"`
	Port    int    `yaml:"port"`

	// --- Key rooms ---
	MasterRoom         int `yaml:"master_room"`
	PlayerStartingRoom int `yaml:"player_starting_room"`

	// --- Security ---
	GodDBRef int `yaml:"god_dbref"`

	// --- Global behavior toggles ---
	AllowBuilding   bool `yaml:"allow_building"`   // global build permission
	AllowTriggering bool `yaml:"allow_triggering"` // global queue/trigger permission
	SpaceCompress   bool `yaml:"space_compress"`
	ExitCallsMove   bool `yaml:"exit_calls_move"`

	// --- $-command matching ---
	MatchOwnCommands       bool `yaml:"match_own_commands"`
	PlayerMatchOwnCommands bool `yaml:"player_match_own_commands"`
	ReqCmdsFlag            bool `yaml:"require_cmds_flag"`
	AddcmdObeyStop         bool `yaml:"addcommands_obey_stop"`
	AddcmdObeyUselocks     bool `yaml:"addcommands_obey_uselocks"`
	AddcmdMatchBlindly     bool `yaml:"addcommands_match_blindly"`
	LocalMasters           bool `yaml:"local_master_rooms"`
	HaveZones              bool `yaml:"have_zones"`
	MatchZoneParents       bool `yaml:"match_zone_parents"`
	SwitchDefaultAll       bool `yaml:"switch_default_all"`

	// --- Recursion and invocation limits ---
	CmdInvkLim    int `yaml:"command_invocation_limit"`
	CmdNestLim    int `yaml:"command_recursion_limit"`
	NtfyNestLim   int `yaml:"notify_recursion_limit"`
	FuncInvkLim   int `yaml:"function_invocation_limit"`
	FuncNestLim   int `yaml:"function_recursion_limit"`
	LockNestLim   int `yaml:"lock_recursion_limit"`
	ParentNestLim int `yaml:"parent_recursion_limit"`
	ZoneNestLim   int `yaml:"zone_recursion_limit"`

	// --- Timing ---
	MaxCmdSecs    float64 `yaml:"max_command_secs"` // CPU diagnostic threshold, 0 = disabled
	LagCheck      bool    `yaml:"lag_check"`
	TrackUserTime bool    `yaml:"track_user_time"` // measure user CPU instead of wall clock

	// --- Messages ---
	HuhMsg       string `yaml:"huh_message"`
	FixedHomeMsg string `yaml:"fixed_home_message"`
	NoPermMsg    string `yaml:"no_permission_message"`

	// --- Logging ---
	LogAllCommands bool `yaml:"log_all_commands"`
	LogSuspectCmds bool `yaml:"log_suspect_commands"`
	LogBadCommands bool `yaml:"log_bad_commands"`
	LogWithLoc     bool `yaml:"log_command_locations"`
}

// DefaultGameConf returns a GameConf with TinyMUSH-compatible defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		MudName:                "GoMUSHCore",
		Port:                   6250,
		MasterRoom:             2,
		PlayerStartingRoom:     0,
		GodDBRef:               1,
		AllowBuilding:          true,
		AllowTriggering:        true,
		SpaceCompress:          true,
		ExitCallsMove:          false,
		MatchOwnCommands:       false,
		PlayerMatchOwnCommands: false,
		ReqCmdsFlag:            true,
		AddcmdObeyStop:         false,
		AddcmdObeyUselocks:     false,
		AddcmdMatchBlindly:     true,
		LocalMasters:           true,
		HaveZones:              true,
		MatchZoneParents:       true,
		SwitchDefaultAll:       true,
		CmdInvkLim:             2500,
		CmdNestLim:             50,
		NtfyNestLim:            20,
		FuncInvkLim:            2500,
		FuncNestLim:            50,
		LockNestLim:            20,
		ParentNestLim:          10,
		ZoneNestLim:            20,
		MaxCmdSecs:             120,
		LagCheck:               true,
		TrackUserTime:          false,
		HuhMsg:                 "Huh?  (Type \"help\" for help.)",
		FixedHomeMsg:           "You can't go home.",
		NoPermMsg:              "Permission denied.",
		LogBadCommands:         true,
		LogWithLoc:             true,
	}
}

// LoadGameConf loads a game config file. Format is auto-detected by
// extension: .yaml/.yml parse as YAML, anything else as legacy MUSH text.
func LoadGameConf(path string) (*GameConf, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return loadGameConfYAML(path)
	default:
		return loadGameConfLegacy(path)
	}
}

// --- YAML loader ---

func loadGameConfYAML(path string) (*GameConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	gc := DefaultGameConf()
	if err := yaml.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return gc, nil
}

// --- Legacy MUSH text loader ---

func loadGameConfLegacy(path string) (*GameConf, error) {
	gc := DefaultGameConf()
	if err := gc.loadLegacyFile(path, 0); err != nil {
		return nil, err
	}
	return gc, nil
}

func (gc *GameConf) loadLegacyFile(path string, depth int) error {
	if depth > 10 {
		return fmt.Errorf("include depth exceeded (circular include?)")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	baseDir := filepath.Dir(path)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '@' {
			continue
		}

		key, val := splitKeyVal(line)
		if key == "" {
			continue
		}
		key = strings.ToLower(key)

		switch key {
		case "include":
			includePath := val
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(baseDir, includePath)
			}
			if err := gc.loadLegacyFile(includePath, depth+1); err != nil {
				log.Printf("gameconf: warning: include %s: %v", val, err)
			}

		case "mud_name":
			gc.MudName = val
		case "port":
			gc.Port = atoi(val, gc.Port)

		case "master_room":
			gc.MasterRoom = atoi(val, gc.MasterRoom)
		case "player_starting_room":
			gc.PlayerStartingRoom = atoi(val, gc.PlayerStartingRoom)
		case "god_dbref":
			gc.GodDBRef = atoi(val, gc.GodDBRef)

		case "building_enabled", "allow_building":
			gc.AllowBuilding = parseBool(val)
		case "queueing_enabled", "allow_triggering":
			gc.AllowTriggering = parseBool(val)
		case "space_compress":
			gc.SpaceCompress = parseBool(val)
		case "exit_calls_move":
			gc.ExitCallsMove = parseBool(val)

		case "match_own_commands":
			gc.MatchOwnCommands = parseBool(val)
		case "player_match_own_commands":
			gc.PlayerMatchOwnCommands = parseBool(val)
		case "require_cmds_flag":
			gc.ReqCmdsFlag = parseBool(val)
		case "addcommands_obey_stop":
			gc.AddcmdObeyStop = parseBool(val)
		case "addcommands_obey_uselocks":
			gc.AddcmdObeyUselocks = parseBool(val)
		case "addcommands_match_blindly":
			gc.AddcmdMatchBlindly = parseBool(val)
		case "local_master_rooms":
			gc.LocalMasters = parseBool(val)
		case "have_zones":
			gc.HaveZones = parseBool(val)
		case "match_zone_parents":
			gc.MatchZoneParents = parseBool(val)
		case "switch_default_all":
			gc.SwitchDefaultAll = parseBool(val)

		case "command_invocation_limit":
			gc.CmdInvkLim = atoi(val, gc.CmdInvkLim)
		case "command_recursion_limit":
			gc.CmdNestLim = atoi(val, gc.CmdNestLim)
		case "notify_recursion_limit":
			gc.NtfyNestLim = atoi(val, gc.NtfyNestLim)
		case "function_invocation_limit":
			gc.FuncInvkLim = atoi(val, gc.FuncInvkLim)
		case "function_recursion_limit":
			gc.FuncNestLim = atoi(val, gc.FuncNestLim)
		case "lock_recursion_limit":
			gc.LockNestLim = atoi(val, gc.LockNestLim)
		case "parent_recursion_limit":
			gc.ParentNestLim = atoi(val, gc.ParentNestLim)
		case "zone_recursion_limit", "zone_nest_limit":
			gc.ZoneNestLim = atoi(val, gc.ZoneNestLim)

		case "max_command_secs", "max_cmdsecs":
			if n, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				gc.MaxCmdSecs = n
			}
		case "lag_check":
			gc.LagCheck = parseBool(val)
		case "track_user_time":
			gc.TrackUserTime = parseBool(val)

		case "huh_message":
			gc.HuhMsg = val
		case "fixed_home_message":
			gc.FixedHomeMsg = val
		case "no_permission_message":
			gc.NoPermMsg = val

		case "log_all_commands":
			gc.LogAllCommands = parseBool(val)
		case "log_suspect_commands":
			gc.LogSuspectCmds = parseBool(val)
		case "log_bad_commands":
			gc.LogBadCommands = parseBool(val)
		case "log_command_locations":
			gc.LogWithLoc = parseBool(val)

		default:
			// Unknown directives silently ignored for forward compatibility
		}
	}
	return scanner.Err()
}

// splitKeyVal splits a line on the first whitespace (space or tab).
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

// StartingRoom returns the configured player starting room.
func (g *Game) StartingRoom() gamedb.DBRef {
	if g.Conf != nil {
		return gamedb.DBRef(g.Conf.PlayerStartingRoom)
	}
	return gamedb.DBRef(0)
}

// --- Helper functions ---

func atoi(s string, fallback int) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "on"
}
