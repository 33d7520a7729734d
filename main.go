package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/telebot.v3"
	"gopkg.in/yaml.v3"

	"ytgrabber/bot"
	"ytgrabber/cookies"
	"ytgrabber/downloader"
)

type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	Download struct {
		WorkDir       string `yaml:"work_dir"`
		MaxSizeMB     int    `yaml:"max_size_mb"`
		CookiesFile   string `yaml:"cookies_file"`
		CookiesExport string `yaml:"cookies_export"`
		JobTTLMinutes int    `yaml:"job_ttl_minutes"`
		MaxResolution int    `yaml:"max_resolution"`
	} `yaml:"download"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
}

var cfg Config

func init() {
	godotenv.Load()
	loadConfig()
	checkDependencies()
}

func loadConfig() {
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Fatalf("Error reading config: %v", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}

	if cfg.Telegram.Token == "" {
		log.Fatal("Telegram token not configured")
	}

	if cfg.Download.WorkDir == "" {
		cfg.Download.WorkDir = "downloads"
	}

	if cfg.Download.MaxSizeMB == 0 {
		cfg.Download.MaxSizeMB = 50
	}

	if cfg.Download.JobTTLMinutes == 0 {
		cfg.Download.JobTTLMinutes = 10
	}

	if err := os.MkdirAll(cfg.Download.WorkDir, 0755); err != nil {
		log.Fatalf("Error creating work dir: %v", err)
	}
}

func checkDependencies() {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		log.Fatal("yt-dlp not found. Please install it first.")
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Fatal("ffmpeg not found. Please install it first.")
	}
}

// refreshCookies rebuilds the Netscape jar when the browser-automation
// collaborator has dropped a newer JSON export.
func refreshCookies() {
	if cfg.Download.CookiesExport == "" || cfg.Download.CookiesFile == "" {
		return
	}
	converted, err := cookies.RefreshIfNewer(cfg.Download.CookiesExport, cfg.Download.CookiesFile)
	if err != nil {
		log.Printf("Cookie refresh failed: %v", err)
		return
	}
	if converted {
		log.Printf("Cookie jar rebuilt from %s", cfg.Download.CookiesExport)
	}
}

// startStatusServer exposes the minimal health page the process
// supervisor polls.
func startStatusServer(jobs *bot.JobStore) {
	addr := cfg.Status.Addr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ytgrabber up, %d active job(s)\n", jobs.Len())
	})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Status server stopped: %v", err)
		}
	}()
}

func main() {
	refreshCookies()

	pref := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	}

	tb, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatal(err)
	}

	engine := downloader.NewEngine(cfg.Download.CookiesFile)

	b := bot.New(tb, engine, bot.Config{
		WorkDir:          cfg.Download.WorkDir,
		MaxUploadBytes:   int64(cfg.Download.MaxSizeMB) << 20,
		DefaultMaxHeight: cfg.Download.MaxResolution,
		JobTTL:           time.Duration(cfg.Download.JobTTLMinutes) * time.Minute,
	})
	b.Register()

	startStatusServer(b.Jobs())

	log.Println("Bot is running...")
	b.Start()
}
