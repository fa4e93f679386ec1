// Suno Saarthi - Voice-guided navigation assistant
// Serves the REST and WebSocket gateway and tracks the active drive
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/sunosaarthi/go-saarthi/pkg/saarthi"
)

func main() {
	cfg := parseFlags()

	app, err := saarthi.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := app.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// Environment overrides apply inside saarthi.New, after the .env file
// is loaded here.
func parseFlags() saarthi.Config {
	cfg := saarthi.DefaultConfig()

	envFile := flag.StringP("env", "e", ".env", "Env file path")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	host := flag.String("host", cfg.Host, "Gateway listen host")
	port := flag.IntP("port", "p", cfg.Port, "Gateway listen port")
	mode := flag.String("mode", cfg.Mode, "Default travel mode: driving, walking, bicycling, transit")
	language := flag.String("language", cfg.Language, "Response language tag (BCP 47)")
	model := flag.String("llm-model", "", "LLM model override")
	simulate := flag.Bool("simulate", false, "Walk newly routed destinations with the drive simulator")
	uplinkURL := flag.String("uplink", "", "Fleet dashboard WebSocket URL")
	flag.Parse()

	godotenv.Load(*envFile)

	cfg.Debug = *debug
	cfg.Host = *host
	cfg.Port = *port
	cfg.Mode = *mode
	cfg.Language = *language
	cfg.Simulate = *simulate
	if *model != "" {
		cfg.LLMModel = *model
	}
	if *uplinkURL != "" {
		cfg.UplinkURL = *uplinkURL
	}
	return cfg
}
