package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// TextFiles holds cached text file contents served at various connection
// lifecycle points (welcome screen, MOTD, quit message, etc.).
type TextFiles struct {
	mu      sync.RWMutex
	Connect string // connect.txt — welcome screen
	Motd    string // motd.txt — post-login MOTD
	WizMotd string // wizmotd.txt — wizard MOTD
	Quit    string // quit.txt — quit message
	NewUser string // newuser.txt — new character message
	Down    string // down.txt — logins disabled
	Full    string // full.txt — too many connections
	BadSite string // badsite.txt — banned site
}

// trackedFiles maps filenames to their TextFiles field descriptions.
var trackedFiles = []struct {
	Name string
	Desc string
}{
	{"connect.txt", "welcome screen"},
	{"motd.txt", "post-login MOTD"},
	{"wizmotd.txt", "wizard MOTD"},
	{"quit.txt", "quit message"},
	{"newuser.txt", "new character message"},
	{"down.txt", "logins disabled"},
	{"full.txt", "too many connections"},
	{"badsite.txt", "banned site"},
}

// Named accessors read under the lock; use these instead of direct
// field access.
func (tf *TextFiles) GetConnect() string { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.Connect }
func (tf *TextFiles) GetMotd() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.Motd }
func (tf *TextFiles) GetWizMotd() string { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.WizMotd }
func (tf *TextFiles) GetQuit() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.Quit }
func (tf *TextFiles) GetNewUser() string { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.NewUser }
func (tf *TextFiles) GetDown() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.Down }
func (tf *TextFiles) GetFull() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.Full }
func (tf *TextFiles) GetBadSite() string { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.BadSite }

// loadFile reads a single text file, returning empty string on any error.
func loadFile(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// LoadTextFiles reads text files from dir and returns a populated TextFiles.
// Missing or empty files result in empty strings (no error).
func LoadTextFiles(dir string) *TextFiles {
	tf := &TextFiles{}
	tf.loadAll(dir)
	return tf
}

// loadAll populates all fields from the given directory and returns the
// count of non-empty files.
func (tf *TextFiles) loadAll(dir string) int {
	tf.mu.Lock()
	defer tf.mu.Unlock()

	tf.Connect = loadFile(dir, "connect.txt")
	tf.Motd = loadFile(dir, "motd.txt")
	tf.WizMotd = loadFile(dir, "wizmotd.txt")
	tf.Quit = loadFile(dir, "quit.txt")
	tf.NewUser = loadFile(dir, "newuser.txt")
	tf.Down = loadFile(dir, "down.txt")
	tf.Full = loadFile(dir, "full.txt")
	tf.BadSite = loadFile(dir, "badsite.txt")

	count := 0
	for _, v := range []string{
		tf.Connect, tf.Motd, tf.WizMotd, tf.Quit, tf.NewUser,
		tf.Down, tf.Full, tf.BadSite,
	} {
		if v != "" {
			count++
		}
	}
	log.Printf("CONFIG: loaded %d text files from %s", count, dir)
	return count
}

// ReloadTextFiles reloads all cached text files from the configured TextDir.
// Returns the count of non-empty files loaded.
func (g *Game) ReloadTextFiles() int {
	if g.TextDir == "" || g.Texts == nil {
		return 0
	}
	return g.Texts.loadAll(g.TextDir)
}

// DoReadCache reloads the cached text and help files from disk.
func DoReadCache(g *Game, player, cause gamedb.DBRef, key int) {
	count := g.ReloadTextFiles()
	if g.TextDir != "" {
		g.LoadHelpFiles(g.TextDir)
	}
	g.Notifyf(player, "Cache reloaded: %d text files.", count)
}

// NotifyWizards sends a message to all connected wizards.
func (g *Game) NotifyWizards(msg string) {
	for ref, obj := range g.DB.Objects {
		if obj.ObjType() != gamedb.TypePlayer || !obj.HasFlag2(gamedb.Flag2Connected) {
			continue
		}
		if Wizard(g, ref) {
			g.Notify(ref, msg)
		}
	}
}

// WatchTextFiles starts an fsnotify watcher on the text directory.
// When tracked files change they are reloaded and connected wizards
// are told.
func (g *Game) WatchTextFiles() {
	if g.TextDir == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: could not start text file watcher: %v", err)
		return
	}

	tracked := make(map[string]bool)
	for _, tf := range trackedFiles {
		tracked[tf.Name] = true
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if !tracked[name] {
					continue
				}
				desc := name
				for _, tf := range trackedFiles {
					if tf.Name == name {
						desc = fmt.Sprintf("%s (%s)", name, tf.Desc)
						break
					}
				}
				g.ReloadTextFiles()
				log.Printf("CONFIG: text file changed, reloaded: %s", desc)
				g.NotifyWizards(fmt.Sprintf("GAME: Text file changed on disk and reloaded: %s", desc))

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WARNING: text file watcher: %v", err)
			}
		}
	}()

	if err := watcher.Add(g.TextDir); err != nil {
		log.Printf("WARNING: could not watch text directory %s: %v", g.TextDir, err)
		watcher.Close()
		return
	}
	log.Printf("CONFIG: watching text directory for changes: %s", g.TextDir)
}
