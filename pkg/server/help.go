package server

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Help file indexes, used as the Extra key on the registered commands.
const (
	HelpHelp = iota
	HelpQuick
	HelpWiz
	HelpNews
	HelpPlus
	HelpWizNews
)

// HelpFile holds parsed entries from a TinyMUSH-format help text file.
// Entries are separated by lines starting with "& topicname".
type HelpFile struct {
	Entries map[string]string // lowercase topic -> text content
}

// LoadHelpFile parses a help .txt file. Returns nil if the file cannot
// be opened.
func LoadHelpFile(path string) *HelpFile {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	hf := &HelpFile{Entries: make(map[string]string)}
	scanner := bufio.NewScanner(f)

	// Topics can have multiple "& TOPIC" aliases that share the same
	// content body. Collect all topic names for each entry.
	var currentTopics []string
	var buf strings.Builder

	saveEntry := func() {
		if len(currentTopics) == 0 {
			return
		}
		text := strings.TrimRight(buf.String(), "\n ")
		for _, topic := range currentTopics {
			hf.Entries[strings.ToLower(topic)] = text
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "& ") {
			topic := strings.TrimSpace(line[2:])
			if buf.Len() == 0 && len(currentTopics) > 0 {
				// Another alias for the same entry.
				currentTopics = append(currentTopics, topic)
			} else {
				saveEntry()
				currentTopics = []string{topic}
				buf.Reset()
			}
		} else {
			if len(currentTopics) > 0 {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
		}
	}
	saveEntry()

	return hf
}

// Lookup finds a help entry by topic name. Tries exact match first,
// then prefix match (e.g. "help @swi" matches "@switch"). If the topic
// contains wildcards (* or ?), returns a list of matching topics.
func (hf *HelpFile) Lookup(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		topic = "help"
	}

	if strings.ContainsAny(topic, "*?") {
		var matches []string
		for key := range hf.Entries {
			if wildMatchCI(topic, key) {
				matches = append(matches, key)
			}
		}
		if len(matches) == 0 {
			return ""
		}
		sort.Strings(matches)
		return fmt.Sprintf("Here are the entries which match '%s':\n  %s",
			topic, strings.Join(matches, "  "))
	}

	if text, ok := hf.Entries[topic]; ok {
		return text
	}

	// Prefix match: shortest key that starts with topic.
	var bestKey string
	for key := range hf.Entries {
		if strings.HasPrefix(key, topic) {
			if bestKey == "" || len(key) < len(bestKey) {
				bestKey = key
			}
		}
	}
	if bestKey != "" {
		return hf.Entries[bestKey]
	}

	return ""
}

// LoadHelpFiles loads the help files from the text directory and
// registers the commands that serve them. Missing files are skipped.
func (g *Game) LoadHelpFiles(textDir string) {
	if g.HelpFiles == nil {
		g.HelpFiles = make(map[int]*HelpFile)
	}
	load := func(index int, name string) {
		hf := LoadHelpFile(textDir + "/" + name)
		if hf == nil {
			return
		}
		log.Printf("CONFIG: loaded help file %s: %d entries", name, len(hf.Entries))
		g.HelpFiles[index] = hf
	}

	load(HelpHelp, "help.txt")
	load(HelpQuick, "qhelp.txt")
	load(HelpWiz, "wizhelp.txt")
	load(HelpNews, "news.txt")
	load(HelpPlus, "plushelp.txt")
	load(HelpWizNews, "wiznews.txt")

	register := func(name string, index, perms int) {
		if _, ok := g.HelpFiles[index]; !ok {
			return
		}
		g.Commands.Register(&Command{
			Name:    name,
			Perms:   perms,
			Extra:   index,
			CallSeq: CSOneArg,
			OneArg:  DoHelp,
		})
	}

	register("help", HelpHelp, CAPublic)
	register("qhelp", HelpQuick, CAPublic)
	register("wizhelp", HelpWiz, CAWizard)
	register("news", HelpNews, CAPublic)
	register("+help", HelpPlus, CAPublic)
	register("wiznews", HelpWizNews, CAWizard)
}

// DoHelp looks a topic up in the help file named by the command's key.
func DoHelp(g *Game, player, cause gamedb.DBRef, key int, topic string) {
	hf := g.HelpFiles[key]
	if hf == nil {
		g.Notify(player, "No help available.")
		return
	}
	text := hf.Lookup(topic)
	if text == "" {
		g.Notifyf(player, "No entry for '%s'.", topic)
		return
	}
	g.Notify(player, text)
}
