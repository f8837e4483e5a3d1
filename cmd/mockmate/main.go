// mockmate: run one practice interview from the terminal.
//
// The default mode starts a generate call, where the agent collects the
// interview details conversationally. With -role the questions are
// generated up front, the call runs the interview, and the scored
// feedback prints when the call ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mockmate/go-mockmate/internal/config"
	"github.com/mockmate/go-mockmate/internal/genai"
	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/store"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

type options struct {
	role      string
	level     string
	kind      string
	techstack string
	amount    int
	userID    string
	username  string
	tokenURL  string
	audioIn   string
	audioOut  string
	debug     bool
}

func main() {
	opts := parseFlags()

	cfg := config.Load()
	if opts.debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	cfg.RequireVapiKeys()
	if opts.tokenURL == "" && cfg.Vapi.PrivateKey == "" {
		fmt.Fprintln(os.Stderr, "Error: VAPI_PRIVATE_KEY is required to run calls (or pass -token-url)")
		os.Exit(1)
	}
	if cfg.Vapi.WorkflowID == "" {
		fmt.Fprintln(os.Stderr, "Error: VAPI_WORKFLOW_ID is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.role, "role", "", "job role; enables interview mode with generated questions")
	flag.StringVar(&opts.level, "level", "Mid", "experience level")
	flag.StringVar(&opts.kind, "type", "mixed", "question focus: behavioural, technical or mixed")
	flag.StringVar(&opts.techstack, "techstack", "", "comma-separated technologies")
	flag.IntVar(&opts.amount, "amount", 5, "number of questions")
	flag.StringVar(&opts.userID, "user", "cli", "user ID for the call")
	flag.StringVar(&opts.username, "name", "Candidate", "candidate name the agent addresses")
	flag.StringVar(&opts.tokenURL, "token-url", "", "backend token endpoint, e.g. http://localhost:8080/api/vapi/token")
	flag.StringVar(&opts.audioIn, "audio-in", "", "PCM16 file streamed as microphone audio, - for stdin")
	flag.StringVar(&opts.audioOut, "audio-out", "", "file receiving the agent's PCM16 audio")
	flag.BoolVar(&opts.debug, "debug", false, "enable verbose debug logging")
	flag.Parse()
	return opts
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	purpose := interview.PurposeGenerate
	var itv *interview.Interview
	var creator *capturingCreator

	if opts.role != "" {
		gem, err := genai.New(genai.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			return fmt.Errorf("interview mode needs Gemini: %w", err)
		}

		fmt.Println("📝 Generating questions...")
		questions, err := interview.NewGeminiQuestionGenerator(gem).GenerateQuestions(ctx, interview.QuestionRequest{
			Role:      opts.role,
			Level:     opts.level,
			Type:      opts.kind,
			Techstack: interview.NormalizeTechstack(opts.techstack),
			Amount:    opts.amount,
		})
		if err != nil {
			return err
		}
		for i, q := range questions {
			fmt.Printf("   %d. %s\n", i+1, q)
		}

		itv = &interview.Interview{
			ID:        uuid.New().String(),
			UserID:    opts.userID,
			Role:      opts.role,
			Level:     opts.level,
			Type:      opts.kind,
			Techstack: interview.NormalizeTechstack(opts.techstack),
			Questions: questions,
			Finalized: true,
		}
		purpose = interview.PurposeInterview
		creator = &capturingCreator{
			svc: feedback.NewService(feedback.NewGeminiGenerator(gem), store.NewMemory()),
		}
	}

	// With -token-url the call runs on a short-lived token from the
	// backend, the same way browser clients do; otherwise the private
	// key is used directly.
	apiKey := cfg.Vapi.PrivateKey
	if opts.tokenURL != "" {
		src := vapi.NewTokenSource(opts.tokenURL, cfg.Vapi.PublicKey, log.L())
		apiKey = src.Token(ctx, opts.userID)
	}

	engine, err := vapi.NewClient(
		vapi.WithAPIKey(apiKey),
		vapi.WithWorkflow(cfg.Vapi.WorkflowID),
		vapi.WithBaseURL(cfg.Vapi.BaseURL),
		vapi.WithSampleRate(cfg.Vapi.SampleRate),
		vapi.WithAudio(opts.audioIn != "" || opts.audioOut != ""),
		vapi.WithLogger(log.Component("vapi")),
	)
	if err != nil {
		return err
	}

	sess := session.New(engine, session.WithLogger(log.L()))
	sess.OnCallStart(func() {
		fmt.Println("🟢 Call started. Press Ctrl+C to hang up.")
	})
	sess.OnMessage(func(msg vapi.Message) {
		if msg.Type != vapi.MessageTypeTranscript {
			return
		}
		fmt.Printf("%s %s\n", rolePrefix(msg.Role), msg.Transcript)
	})

	if opts.audioOut != "" {
		out, err := os.Create(opts.audioOut)
		if err != nil {
			return fmt.Errorf("create audio output: %w", err)
		}
		defer out.Close()
		// The engine delivers audio on one goroutine, so plain writes
		// are safe.
		engine.OnAudio(func(data []byte) { out.Write(data) })
		fmt.Println("🔈 Agent audio →", opts.audioOut)
	}
	if opts.audioIn != "" {
		pcm, err := readAudioInput(opts.audioIn)
		if err != nil {
			return fmt.Errorf("read audio input: %w", err)
		}
		sess.OnCallStart(func() {
			go streamAudio(ctx, engine, pcm, cfg.Vapi.SampleRate)
		})
	}

	done := make(chan string, 1)
	ctrlCfg := interview.ControllerConfig{
		Purpose:   purpose,
		Profile:   interview.Profile{Name: opts.username, ID: opts.userID},
		Interview: itv,
		Navigator: interview.NavigatorFunc(func(route string) {
			select {
			case done <- route:
			default:
			}
		}),
	}
	if creator != nil {
		ctrlCfg.Feedback = creator
	}
	ctrl, err := interview.NewController(sess, ctrlCfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Println("📞 Starting call...")
	if err := ctrl.StartCall(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		fmt.Println("\n👋 Hanging up...")
		if purpose == interview.PurposeInterview {
			fmt.Println("⏳ Scoring the interview...")
		}
		// EndCall runs the terminal transition synchronously, so the
		// feedback is ready once it returns.
		if err := ctrl.EndCall(); err != nil {
			log.L().Warn("hangup error", "error", err)
		}
	case <-done:
	}

	fmt.Printf("\n✅ Call finished (%d utterances)\n", len(sess.Messages()))
	if creator != nil {
		if fb := creator.feedback(); fb != nil {
			printFeedback(fb)
		}
	}
	return nil
}

func readAudioInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// streamAudio paces PCM16 mono audio to the engine in real time.
func streamAudio(ctx context.Context, engine *vapi.Client, pcm []byte, sampleRate int) {
	// 100ms of 16-bit samples per frame.
	frame := sampleRate / 10 * 2
	if frame <= 0 {
		frame = 3200
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for off := 0; off < len(pcm); off += frame {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		end := off + frame
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := engine.SendAudio(pcm[off:end]); err != nil {
			return
		}
	}
}

func rolePrefix(role vapi.Role) string {
	switch role {
	case vapi.RoleAssistant:
		return "🤖"
	case vapi.RoleUser:
		return "🧑"
	default:
		return "💬"
	}
}

// capturingCreator runs feedback creation and keeps the result so the
// CLI can print it after the call.
type capturingCreator struct {
	svc *feedback.Service

	mu   sync.Mutex
	last *feedback.Feedback
}

func (c *capturingCreator) CreateFeedback(ctx context.Context, params feedback.CreateParams) (*feedback.Feedback, error) {
	fb, err := c.svc.CreateFeedback(ctx, params)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.last = fb
	c.mu.Unlock()
	return fb, nil
}

func (c *capturingCreator) feedback() *feedback.Feedback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func printFeedback(fb *feedback.Feedback) {
	fmt.Println()
	fmt.Printf("📊 Total score: %.0f/100\n", fb.TotalScore)
	for _, cs := range fb.CategoryScores {
		fmt.Printf("   %-22s %3.0f  %s\n", cs.Name, cs.Score, cs.Comment)
	}
	if len(fb.Strengths) > 0 {
		fmt.Println("\n💪 Strengths")
		for _, s := range fb.Strengths {
			fmt.Println("   -", s)
		}
	}
	if len(fb.AreasForImprovement) > 0 {
		fmt.Println("\n📈 Areas for improvement")
		for _, a := range fb.AreasForImprovement {
			fmt.Println("   -", a)
		}
	}
	fmt.Println("\n" + fb.FinalAssessment)
}
