package voice

import (
	"context"
	"errors"

	"github.com/sunosaarthi/go-saarthi/pkg/command"
)

// Phase is the controller's interaction state.
type Phase string

// Interaction phases. The controller cycles WakeListening →
// CommandListening → Processing → Speaking → WakeListening, dipping
// into ErrorRetry between recognition attempts. Idle means stopped.
const (
	PhaseIdle             Phase = "idle"
	PhaseWakeListening    Phase = "wake_listening"
	PhaseCommandListening Phase = "command_listening"
	PhaseProcessing       Phase = "processing"
	PhaseSpeaking         Phase = "speaking"
	PhaseErrorRetry       Phase = "error_retry"
)

// validTransitions is the controller's phase machine. Idle is
// reachable from everywhere via Stop.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:             {PhaseWakeListening},
	PhaseWakeListening:    {PhaseCommandListening, PhaseErrorRetry, PhaseIdle},
	PhaseCommandListening: {PhaseProcessing, PhaseSpeaking, PhaseErrorRetry, PhaseWakeListening, PhaseIdle},
	PhaseProcessing:       {PhaseSpeaking, PhaseWakeListening, PhaseIdle},
	PhaseSpeaking:         {PhaseWakeListening, PhaseIdle},
	PhaseErrorRetry:       {PhaseCommandListening, PhaseWakeListening, PhaseIdle},
}

func transitionAllowed(from, to Phase) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Processor turns a transcript and its context snapshot into a
// response. *command.Processor is the production implementation.
type Processor interface {
	Process(ctx context.Context, transcript string, cctx *command.Context) (*command.Response, error)
}

// Callbacks are observer hooks into the interaction cycle. All fields
// are optional; callbacks run on the controller's goroutine and must
// not block.
type Callbacks struct {
	// OnPhaseChange fires after every phase transition.
	OnPhaseChange func(from, to Phase)

	// OnWake fires when the wake phrase is detected.
	OnWake func(text string, confidence float64)

	// OnTranscript fires with each accepted command transcript.
	OnTranscript func(text string)

	// OnResponse fires with each response before it is spoken.
	OnResponse func(resp *command.Response)

	// OnError fires on recognition and processing failures.
	OnError func(err error)
}

// Controller errors.
var (
	// ErrAlreadyRunning is returned by Start while a cycle is active.
	ErrAlreadyRunning = errors.New("voice: controller already running")

	// ErrSpeechRequired is returned when no speech capability is given.
	ErrSpeechRequired = errors.New("voice: speech capability required")

	// ErrDetectorRequired is returned when no wake detector is given.
	ErrDetectorRequired = errors.New("voice: wake detector required")

	// ErrProcessorRequired is returned when no command processor is given.
	ErrProcessorRequired = errors.New("voice: command processor required")
)
