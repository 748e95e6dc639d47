package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/archive"
	"github.com/crystal-mush/gomushcore/pkg/boltstore"
	mushcrypt "github.com/crystal-mush/gomushcore/pkg/crypt"
	"github.com/crystal-mush/gomushcore/pkg/flatfile"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
	"github.com/crystal-mush/gomushcore/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	dbPath := flag.String("db", envDefault("MUSH_DB", ""), "Path to flatfile database (env: MUSH_DB)")
	boltPath := flag.String("bolt", envDefault("MUSH_BOLT", ""), "Path to bbolt persistent database (env: MUSH_BOLT)")
	forceImport := flag.Bool("import", os.Getenv("MUSH_IMPORT") == "true", "Force re-import from flatfile into bbolt (env: MUSH_IMPORT)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: MUSH_PORT)")
	textDir := flag.String("textdir", envDefault("MUSH_TEXTDIR", ""), "Path to text files directory (env: MUSH_TEXTDIR)")
	aliasConf := flag.String("aliasconf", envDefault("MUSH_ALIASCONF", ""), "Path to alias config file(s), comma-separated (env: MUSH_ALIASCONF)")
	confFile := flag.String("conf", envDefault("MUSH_CONF", ""), "Path to game config file (env: MUSH_CONF)")
	sqlDBPath := flag.String("sqldb", envDefault("MUSH_SQLDB", ""), "Path to SQLite3 database file (env: MUSH_SQLDB)")
	fresh := flag.Bool("fresh", os.Getenv("MUSH_FRESH") == "true", "Delete bolt DB on startup for a clean reimport every restart (env: MUSH_FRESH)")
	webPort := flag.Int("webport", 0, "HTTP/WebSocket port, 0 disables the web server (env: MUSH_WEBPORT)")
	jwtSecret := flag.String("jwt-secret", envDefault("MUSH_JWT_SECRET", ""), "JWT signing secret for the web API (env: MUSH_JWT_SECRET)")
	staticDir := flag.String("staticdir", envDefault("MUSH_STATICDIR", ""), "Static web client directory (env: MUSH_STATICDIR)")
	archiveDir := flag.String("archive-dir", envDefault("MUSH_ARCHIVE_DIR", ""), "Archive output directory (env: MUSH_ARCHIVE_DIR)")
	archiveMins := flag.Int("archive-interval", 0, "Auto-archive interval in minutes, 0 disables (env: MUSH_ARCHIVE_INTERVAL)")
	restorePath := flag.String("restore", envDefault("MUSH_RESTORE", ""), "Restore from archive before boot (env: MUSH_RESTORE)")
	godPass := flag.String("godpass", envDefault("MUSH_GODPASS", ""), "Set God (#1) password at startup (env: MUSH_GODPASS)")
	debug := flag.Bool("debug", os.Getenv("MUSH_DEBUG") == "true", "Enable debug logging (env: MUSH_DEBUG)")
	flag.Parse()

	log.Printf("Welcome to %s", server.VersionString())
	server.SetDebug(*debug)

	if *port == 0 {
		if envPort := os.Getenv("MUSH_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}
	if *webPort == 0 {
		if envPort := os.Getenv("MUSH_WEBPORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*webPort = p
			}
		}
	}
	if *archiveMins == 0 {
		if v := os.Getenv("MUSH_ARCHIVE_INTERVAL"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*archiveMins = n
			}
		}
	}

	if *dbPath == "" && *boltPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: gomushcore -conf <config> -db <flatfile> [-bolt <boltfile>] [-port 6250]")
		fmt.Fprintln(os.Stderr, "       gomushcore -conf <config> -bolt <boltfile> [-port 6250]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Environment variables (used as defaults when flags are not set):")
		fmt.Fprintln(os.Stderr, "  MUSH_CONF      Path to game config file (.yaml or legacy .conf)")
		fmt.Fprintln(os.Stderr, "  MUSH_DB        Path to flatfile database")
		fmt.Fprintln(os.Stderr, "  MUSH_BOLT      Path to bbolt persistent database")
		fmt.Fprintln(os.Stderr, "  MUSH_IMPORT    Set to 'true' to force reimport from flatfile")
		fmt.Fprintln(os.Stderr, "  MUSH_PORT      TCP port to listen on")
		fmt.Fprintln(os.Stderr, "  MUSH_WEBPORT   HTTP/WebSocket port (0 = disabled)")
		fmt.Fprintln(os.Stderr, "  MUSH_TEXTDIR   Path to text files directory")
		fmt.Fprintln(os.Stderr, "  MUSH_ALIASCONF Path to alias config file(s)")
		fmt.Fprintln(os.Stderr, "  MUSH_SQLDB     Path to SQLite3 database file")
		fmt.Fprintln(os.Stderr, "  MUSH_FRESH     Set to 'true' to wipe bolt DB on every restart")
		fmt.Fprintln(os.Stderr, "  MUSH_JWT_SECRET  JWT signing secret for the web API")
		fmt.Fprintln(os.Stderr, "  MUSH_RESTORE   Path to archive .tar.gz for pre-boot restore")
		fmt.Fprintln(os.Stderr, "  MUSH_GODPASS   Set God (#1) password at startup")
		fmt.Fprintln(os.Stderr, "  MUSH_ARCHIVE_DIR      Archive output directory")
		fmt.Fprintln(os.Stderr, "  MUSH_ARCHIVE_INTERVAL Auto-archive interval in minutes")
		fmt.Fprintln(os.Stderr, "  MUSH_DEBUG     Set to 'true' for debug logging")
		os.Exit(1)
	}

	// Pre-boot restore from archive.
	if *restorePath != "" {
		log.Printf("Restoring from archive: %s", *restorePath)
		result, err := archive.RestoreArchive(archive.RestoreParams{
			ArchivePath: *restorePath,
			BoltDest:    *boltPath,
			SQLDest:     *sqlDBPath,
			TextDest:    *textDir,
			ConfDest:    *confFile,
			AliasDest: func() string {
				if *confFile != "" {
					return filepath.Dir(*confFile)
				}
				return ""
			}(),
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
		})
		if err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		log.Printf("Restore complete: %d files restored", result.FilesRestored)
		for _, w := range result.Warnings {
			log.Printf("Restore warning: %s", w)
		}
	}

	// Load game config if specified, otherwise use defaults.
	var gc *server.GameConf
	if *confFile != "" {
		var err error
		gc, err = server.LoadGameConf(*confFile)
		if err != nil {
			log.Fatalf("Error loading game config: %v", err)
		}
		log.Printf("Loaded game config from %s", *confFile)
	} else {
		gc = server.DefaultGameConf()
	}
	if *port != 0 {
		gc.Port = *port
	}

	// Open the database: bbolt-backed when -bolt is given, otherwise a
	// pure in-memory load from the flatfile.
	var store *boltstore.Store
	var db *gamedb.Database

	if *boltPath != "" {
		if *fresh {
			if err := os.Remove(*boltPath); err != nil && !os.IsNotExist(err) {
				log.Fatalf("Error removing bolt database for fresh start: %v", err)
			}
			log.Printf("Fresh mode: removed %s for clean reimport", *boltPath)
		}

		_, statErr := os.Stat(*boltPath)
		needImport := *forceImport || os.IsNotExist(statErr)

		var err error
		store, err = boltstore.Open(*boltPath)
		if err != nil {
			log.Fatalf("Error opening bolt database: %v", err)
		}
		defer store.Close()

		if !needImport && store.HasData() {
			log.Printf("Loading database from bbolt: %s", *boltPath)
			if err := store.LoadAll(); err != nil {
				log.Fatalf("Error loading from bolt: %v", err)
			}
		} else {
			if *dbPath == "" {
				log.Fatalf("Flatfile path (-db or MUSH_DB) required for initial import into bbolt")
			}
			log.Printf("Importing flatfile %s into bbolt %s...", *dbPath, *boltPath)
			parsed := parseFlatfile(*dbPath)
			if err := store.ImportFromDatabase(parsed); err != nil {
				log.Fatalf("Error importing into bolt: %v", err)
			}
		}
		db = store.DB()
	} else {
		log.Printf("Loading database from %s...", *dbPath)
		db = parseFlatfile(*dbPath)
	}
	log.Printf("Database loaded: %d objects, %d attribute definitions",
		len(db.Objects), len(db.AttrNames))

	game := server.NewGame(db, gc)
	game.Store = store
	game.Metrics = server.NewMetrics(game, time.Now())

	// Handle -godpass: set God password at startup (continues booting).
	if *godPass != "" {
		godRef := game.GodPlayer()
		if _, ok := game.DB.Objects[godRef]; !ok {
			log.Fatalf("God player #%d not found in database", godRef)
		}
		game.SetAttr(godRef, 5, mushcrypt.Crypt(*godPass, "XX")) // A_PASS
		log.Printf("God (#%d) password set at startup.", godRef)
	}

	// Text and help files.
	if *textDir != "" {
		game.TextDir = *textDir
		game.Texts = server.LoadTextFiles(*textDir)
		game.WatchTextFiles()
		game.LoadHelpFiles(*textDir)
	}

	// Alias configs.
	var aliasPaths []string
	if *aliasConf != "" {
		for _, p := range strings.Split(*aliasConf, ",") {
			aliasPaths = append(aliasPaths, strings.TrimSpace(p))
		}
		ac, err := server.LoadAliasConfig(aliasPaths...)
		if err != nil {
			log.Fatalf("Error loading alias config: %v", err)
		}
		game.ApplyAliasConfig(ac)
	}

	// SQLite side store for softcode SQL and scrollback.
	if *sqlDBPath != "" {
		sqlStore, err := server.OpenSQLStore(*sqlDBPath, 1000, 5)
		if err != nil {
			log.Printf("WARNING: failed to open SQL database %s: %v", *sqlDBPath, err)
		} else {
			game.SQLDB = sqlStore
			defer sqlStore.Close()
			log.Printf("SQL enabled, database: %s", *sqlDBPath)
			server.NewScrollbackWriter(game)
			server.StartRetentionCleanup(sqlStore, 30*24*time.Hour)
		}
	}

	game.RunStartup()

	cfg := server.DefaultConfig()
	cfg.Port = gc.Port
	srv := server.NewServer(game, cfg)

	// Optional HTTP/WebSocket transport.
	if *webPort > 0 {
		webCfg := server.WebConfig{
			Port:      *webPort,
			StaticDir: *staticDir,
			RateLimit: 120,
			JWTSecret: *jwtSecret,
		}
		web := server.NewWebServer(srv, webCfg)
		go func() {
			if err := web.Start(webCfg); err != nil {
				log.Printf("WARNING: web server: %v", err)
			}
		}()
	}

	if *archiveDir != "" && *archiveMins > 0 {
		startAutoArchive(game, store, gc, *archiveDir, *sqlDBPath, *textDir, *confFile, aliasPaths, *archiveMins)
	}

	log.Printf("Starting %s on port %d...", gc.MudName, cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// parseFlatfile loads and parses a flatfile database or dies.
func parseFlatfile(path string) *gamedb.Database {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error opening flatfile: %v", err)
	}
	defer f.Close()
	db, err := flatfile.Parse(f)
	if err != nil {
		log.Fatalf("Error parsing flatfile: %v", err)
	}
	return db
}

// startAutoArchive snapshots game data into a .tar.gz on an interval.
func startAutoArchive(game *server.Game, store *boltstore.Store, gc *server.GameConf,
	archiveDir, sqlPath, textDir, confPath string, aliasPaths []string, mins int) {
	if store == nil {
		log.Printf("WARNING: auto-archive requires a bolt database; disabled")
		return
	}
	log.Printf("Auto-archive enabled: every %d minutes, dir %s", mins, archiveDir)
	go func() {
		ticker := time.NewTicker(time.Duration(mins) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			params := archive.ArchiveParams{
				BoltSnapshotFunc: store.Backup,
				SQLPath:          sqlPath,
				TextDir:          textDir,
				ConfPath:         confPath,
				AliasConfs:       aliasPaths,
				ArchiveDir:       archiveDir,
				MudName:          gc.MudName,
				ObjectCount:      len(game.DB.Objects),
			}
			if game.SQLDB != nil {
				params.SQLCheckpointFunc = game.SQLDB.Checkpoint
			}
			path, err := archive.CreateArchive(params)
			if err != nil {
				log.Printf("WARNING: auto-archive: %v", err)
				continue
			}
			log.Printf("GAME: archive written: %s", path)
		}
	}()
}
