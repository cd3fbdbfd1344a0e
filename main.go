package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"

	"github.com/example/workspace-chat/modules/api"
	"github.com/example/workspace-chat/modules/assistant"
	"github.com/example/workspace-chat/modules/broadcast"
	"github.com/example/workspace-chat/modules/chat"
	"github.com/example/workspace-chat/modules/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	log.Println("=== Workspace Chat - Fiber + EventBus Pubsub ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storeModule := store.NewModule()
	chatModule := chat.NewModule()
	broadcastModule := broadcast.NewModule()
	assistantModule := assistant.NewModule()
	apiModule := api.NewModule()

	// Manual injection for handles not exposed via ServiceContainer.
	chatModule.SetDocumentStore(storeModule.Documents())
	apiModule.SetChat(chatModule)
	apiModule.SetAssistant(assistantModule)
	apiModule.SetHub(broadcastModule.Hub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - store: Document store (SQLite-backed workspace collection)
	// - chat: Core domain (tree operations + mutation coordinator)
	// - broadcast: Event consumer (WebSocket session registry + fan-out)
	// - assistant: Event consumer (delayed response pipeline, depends on chat)
	// - api: Driving adapter (Fiber HTTP/WebSocket server)
	app.Register(storeModule)
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(assistantModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Println("  - Storage: SQLite document store (whole-collection JSON)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event-Driven Chat:")
	log.Println("  - MessageSent events -> broadcast module -> channel room clients")
	log.Println("  - MessageSent events -> assistant module -> delayed AI replies")
	log.Println("  - TopologyChanged events -> broadcast module -> all clients")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health          - Health check")
	log.Println("  POST   /api/v1/upload   - File upload boundary")
	log.Println("  GET    /uploads/:name   - Uploaded file serving")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Inbound: user-info, join-channel, leave-channel, chat-message,")
	log.Println("           ai-request, edit/delete-message, add/update/delete-reply,")
	log.Println("           update-reaction, workspace/channel create/rename/delete")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
