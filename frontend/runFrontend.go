package frontend

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/jghoshh/trailhead/backend/analytics"
	"github.com/jghoshh/trailhead/backend/queue"
	storage "github.com/jghoshh/trailhead/backend/storage/persistent"
	"github.com/jghoshh/trailhead/frontend/client"
	"github.com/jghoshh/trailhead/frontend/cmd"
	"github.com/jghoshh/trailhead/progress"
	"github.com/jghoshh/trailhead/roadmap"
)

// RunFrontend wires the interactive shell session: the HTTP auth client,
// the direct document-store path the sync controller uses, and the
// analytics emitter. It blocks until the shell exits.
func RunFrontend() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	authToken := os.Getenv("AUTH_TOKEN")
	authTokenRefresh := os.Getenv("AUTH_TOKEN_REFRESH")
	serverURL := os.Getenv("SERVER_URL")
	dbURI := os.Getenv("MONGODB_URI")
	dbName := os.Getenv("DB_NAME")
	redisURL := os.Getenv("REDIS_URL")
	rabbitMQURL := os.Getenv("RABBITMQ_URL")
	lookupURL := os.Getenv("IPINFO_URL")
	lookupToken := os.Getenv("IPINFO_TOKEN")

	if lookupURL == "" {
		lookupURL = "https://ipinfo.io/json"
	}

	// Stale tokens from a previous run are dropped; each run starts signed out.
	keyring.Delete(client.KeyringService, authToken)
	keyring.Delete(client.KeyringService, authTokenRefresh)

	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatalf("Error initializing storage: %v", err)
	}

	eventCache := queue.InitEventCache(redisURL)
	// The shell only publishes events; consumers run in the backend.
	eventQueue := queue.BuildEventQueue(rabbitMQURL, 1, 0, eventCache, store)
	emitter := analytics.NewEmitter(eventQueue, eventCache, lookupURL, lookupToken)

	controller := progress.NewController(store, emitter, roadmap.Phases())

	client.InitAuthClient(serverURL, signingKey, authToken, authTokenRefresh)
	cmd.Init(controller)
	cmd.Execute()
}
