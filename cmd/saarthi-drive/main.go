// Command saarthi-drive runs a scripted hands-free drive against an
// embedded gateway: wake phrase, a spoken destination command, a
// simulated drive with maneuver announcements, and an ETA question on
// the way.
//
// Usage:
//
//	go run ./cmd/saarthi-drive
//	go run ./cmd/saarthi-drive --destination "Juhu Beach" --port 8790
//
// The demo is fully offline by default. With GOOGLE_MAPS_API_KEY and
// GEMINI_API_KEY (or OPENAI_API_KEY) set, the live providers answer
// instead of the canned ones.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/sunosaarthi/go-saarthi/pkg/command"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
	"github.com/sunosaarthi/go-saarthi/pkg/saarthi"
	"github.com/sunosaarthi/go-saarthi/pkg/speech"
	"github.com/sunosaarthi/go-saarthi/pkg/voice"
	"github.com/sunosaarthi/go-saarthi/pkg/wake"
)

func main() {
	port := flag.IntP("port", "p", 8790, "Gateway listen port")
	destination := flag.String("destination", "India Gate", "Where the scripted driver asks to go")
	question := flag.String("question", "How long until we get there?", "Follow-up question asked mid-drive")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	godotenv.Load(".env")

	cfg := saarthi.DefaultConfig()
	cfg.Debug = *debug
	cfg.Host = "127.0.0.1"
	cfg.Port = *port
	cfg.Simulate = true

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

	go func() {
		if err := app.Run(ctx); err != nil {
			log.Fatalf("❌ Gateway error: %v", err)
		}
	}()

	baseURL := "http://" + cfg.Addr()
	if err := waitForGateway(ctx, baseURL+"/health"); err != nil {
		log.Fatalf("❌ %v", err)
	}

	fmt.Println()
	fmt.Println("🚗 Suno Saarthi - scripted drive")
	fmt.Printf("   Gateway: %s\n", baseURL)
	fmt.Println()

	go streamEvents(ctx, "ws://"+cfg.Addr()+"/ws/events")

	// The microphone is scripted: the wake phrase arrives over the
	// continuous listen stream, the queued utterances answer the
	// command captures that follow.
	mic := speech.NewMock()
	mic.QueueUtterance("Navigate to "+*destination, 0.96)
	mic.QueueUtterance(*question, 0.93)

	processor := command.NewProcessor(baseURL)
	controller, err := voice.NewController(mic, wake.NewLocal(), processor,
		voice.WithCallbacks(voice.Callbacks{
			OnWake:       func(text string, confidence float64) { fmt.Printf("🎤 Wake: %q (%.2f)\n", text, confidence) },
			OnTranscript: func(text string) { fmt.Printf("🗣️  Driver: %s\n", text) },
			OnResponse:   func(resp *command.Response) { fmt.Printf("🤖 Saarthi: %s\n", resp.Text) },
		}),
		voice.WithContextBuilder(func() *command.Context {
			state := app.Server().State()
			snap := app.Tracker().Snapshot()
			cctx := &command.Context{
				Destination: state.Destination,
				LocalTime:   time.Now().Format("3:04 PM"),
			}
			if snap.Active {
				cctx.RouteInfo = fmt.Sprintf("%s remaining, about %s",
					snap.DistanceText, snap.DurationText)
			}
			return cctx
		}),
	)
	if err != nil {
		log.Fatalf("❌ Voice controller: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		log.Fatalf("❌ Voice controller: %v", err)
	}
	defer controller.Stop()

	// Wake up, let the queued destination command go through.
	if !say(ctx, mic, "suno saarthi") {
		log.Fatalf("❌ Wake listening never became ready")
	}
	if !waitFor(ctx, 15*time.Second, func() bool { return app.Tracker().Route() != nil }) {
		log.Fatalf("❌ No route attached, check the gateway logs")
	}

	// Mid-drive, wake again and ask the follow-up.
	if say(ctx, mic, "suno saarthi") {
		waitFor(ctx, 15*time.Second, func() bool { return len(mic.SpokenTexts()) >= 2 })
	}

	if waitFor(ctx, 30*time.Second, func() bool { return app.Tracker().Snapshot().Arrived }) {
		fmt.Println()
		fmt.Println("🏁 Arrived.")
	}

	fmt.Println()
	fmt.Println("Spoken during the drive:")
	for _, text := range mic.SpokenTexts() {
		fmt.Printf("   %q\n", text)
	}
}

// say waits for wake listening to become active, then delivers text
// over the microphone's listen stream.
func say(ctx context.Context, mic *speech.Mock, text string) bool {
	if !waitFor(ctx, 10*time.Second, mic.Listening) {
		return false
	}
	fmt.Printf("🗣️  Driver: %s\n", text)
	mic.SimulateUtterance(text)
	return true
}

func waitFor(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return false
}

func waitForGateway(ctx context.Context, healthURL string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("gateway not reachable at %s", healthURL)
}

// streamEvents mirrors the dashboard: it subscribes to the gateway's
// event socket and prints route, announcement and position events.
func streamEvents(ctx context.Context, url string) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		fmt.Printf("⚠️  Event stream unavailable: %v\n", err)
		return
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case protocol.TypeRoute:
			if route, err := msg.GetRouteData(); err == nil {
				fmt.Printf("🗺  Route via %s: %s, about %s\n",
					route.Summary, route.DistanceText, route.DurationText)
			}
		case protocol.TypeAnnouncement:
			if ann, err := msg.GetAnnouncementData(); err == nil {
				fmt.Printf("📢 %s\n", ann.Text)
			}
		case protocol.TypePosition:
			if pos, err := msg.GetPositionData(); err == nil {
				fmt.Printf("📍 %.5f, %.5f (step %d)\n", pos.Lat, pos.Lng, pos.StepIndex)
			}
		}
	}
}
