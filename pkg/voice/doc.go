// Package voice runs the hands-free interaction cycle: listen for the
// wake phrase, capture a command, hand it to the command processor,
// speak the reply, repeat.
//
// The Controller owns a single phase field and drives it through a
// guarded transition method; everything else (recognition sessions,
// synthesis, retries) hangs off the current phase. Recognition and
// synthesis are supplied by a speech.Capability, wake detection by a
// wake.Detector, and command handling by a Processor. The controller
// itself never touches audio or the network.
//
// # Usage
//
// Wire a speech capability, wake detector and command processor into a
// controller and start it:
//
//	mic := speech.NewMock()
//	processor := command.NewProcessor("http://127.0.0.1:8000")
//
//	ctl, err := voice.NewController(mic, wake.NewLocal(), processor,
//	    voice.WithCallbacks(voice.Callbacks{
//	        OnWake: func(text string, confidence float64) {
//	            fmt.Printf("wake: %q (%.2f)\n", text, confidence)
//	        },
//	        OnResponse: func(resp *command.Response) {
//	            fmt.Println(resp.Text)
//	        },
//	    }))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := ctl.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctl.Stop()
//
// The cycle then runs on its own goroutine until Stop is called or the
// recognizer reports a permission error.
//
// # Capture policy
//
// Command capture applies a retry policy instead of failing the cycle:
// silence and too-short transcripts skip the processor and speak a
// clarification prompt; no-speech errors retry up to the configured
// budget; other transient recognition errors retry once and then fall
// back to a locally generated response.
//
// # Metrics
//
// Each cycle's wake-to-spoken latency is tracked:
//
//	m := ctl.Metrics().Current()
//	fmt.Println(m.FormatLatency()) // "740ms capture | 1.2s response | 2.1s total"
//
// Averages over recent cycles are available from Metrics().Average().
package voice
