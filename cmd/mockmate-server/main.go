// mockmate-server: HTTP API and websocket bridge for MockMate practice
// interviews. Serves token minting, interview generation, feedback
// retrieval and live call sessions for browser clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mockmate/go-mockmate/internal/config"
	"github.com/mockmate/go-mockmate/internal/genai"
	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/store"
	"github.com/mockmate/go-mockmate/pkg/vapi"
	"github.com/mockmate/go-mockmate/pkg/web"
)

var version = "1.0.0"

func main() {
	port := flag.String("port", "", "listen port (overrides PORT)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	requestLog := flag.Bool("request-log", false, "log every HTTP request")
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *requestLog {
		cfg.Server.RequestLogging = true
	}

	log.Init(cfg.LogLevel)
	logger := log.Component("main")

	if cfg.Gemini.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY is required")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("🎤 MockMate Server v" + version)
	fmt.Println("   AI mock interviews with voice agents")
	fmt.Println()

	ctx := context.Background()

	// Firestore when a project is configured, in-memory otherwise.
	var st store.Store
	if cfg.Firestore.ProjectID != "" {
		fs, err := store.NewFirestore(ctx, store.FirestoreConfig{
			ProjectID:       cfg.Firestore.ProjectID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
		if err != nil {
			logger.Error("firestore init failed", "error", err)
			os.Exit(1)
		}
		st = fs
		logger.Info("using firestore", "project", cfg.Firestore.ProjectID)
	} else {
		st = store.NewMemory()
		logger.Warn("no FIRESTORE_PROJECT_ID set, using in-memory store")
	}

	gem, err := genai.New(genai.Config{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		logger.Error("gemini init failed", "error", err)
		os.Exit(1)
	}

	var minter web.TokenMinter
	if cfg.Vapi.PrivateKey != "" {
		minter = vapi.NewTokenIssuer(cfg.Vapi.PrivateKey, cfg.Vapi.OrgID)
	} else {
		logger.Warn("no VAPI_PRIVATE_KEY set, token endpoint serves the public key")
	}

	var engines web.EngineFactory
	if cfg.Vapi.PrivateKey != "" && cfg.Vapi.WorkflowID != "" {
		engines = func() (vapi.Engine, error) {
			return vapi.NewClient(
				vapi.WithAPIKey(cfg.Vapi.PrivateKey),
				vapi.WithWorkflow(cfg.Vapi.WorkflowID),
				vapi.WithBaseURL(cfg.Vapi.BaseURL),
				vapi.WithSampleRate(cfg.Vapi.SampleRate),
				vapi.WithLogger(log.Component("vapi")),
			)
		}
	} else {
		logger.Warn("engine credentials incomplete, websocket calls disabled")
	}

	srv, err := web.NewServer(web.Config{
		Store:          st,
		Questions:      interview.NewGeminiQuestionGenerator(gem),
		Feedback:       feedback.NewService(feedback.NewGeminiGenerator(gem), st),
		Minter:         minter,
		PublicKey:      cfg.Vapi.PublicKey,
		Engines:        engines,
		AppName:        "mockmate",
		Version:        version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestLogging: cfg.Server.RequestLogging,
	})
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(":" + cfg.Server.Port); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n👋 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
