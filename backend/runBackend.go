package backend

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/jghoshh/trailhead/backend/analytics"
	"github.com/jghoshh/trailhead/backend/queue"
	"github.com/jghoshh/trailhead/backend/server"
	"github.com/jghoshh/trailhead/backend/server/auth"
	storage "github.com/jghoshh/trailhead/backend/storage/persistent"
)

// RunBackend sets up the backend: storage, the analytics event queue and
// its consumers, the auth service, and the REST server. The server runs in
// its own goroutine; RunBackend returns once everything is started.
func RunBackend() {
	// Load the .env file.
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables from the .env file using os.Getenv.
	signingKey := os.Getenv("JWT_SIGNING_KEY") // JWT signing key for token generation
	serverURL := os.Getenv("SERVER_URL")       // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")          // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	redisURL := os.Getenv("REDIS_URL")         // The Redis URL for caching
	rabbitMQURL := os.Getenv("RABBITMQ_URL")   // The URL for the RabbitMQ message broker
	lookupURL := os.Getenv("IPINFO_URL")       // The geolocation lookup endpoint
	lookupToken := os.Getenv("IPINFO_TOKEN")   // Bearer token for the geolocation lookup
	numEventProducers := 1                     // The number of event producers
	numEventConsumers := 2                     // The number of event consumers
	ctx := context.Background()

	if lookupURL == "" {
		lookupURL = "https://ipinfo.io/json"
	}

	// Initialize the persistent storage used by the server and the event consumers.
	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatalf("Error initializing storage: %v", err)
	}

	// Initialize the event cache using the Redis URL.
	eventCache := queue.InitEventCache(redisURL)

	// Build the analytics event queue and start its consumers.
	eventQueue := queue.BuildEventQueue(rabbitMQURL, numEventProducers, numEventConsumers, eventCache, store)
	_, _, err = eventQueue.StartConsumers(ctx)
	if err != nil {
		log.Fatal("error starting queue consumers: ", err)
	}

	// Initialize the analytics emitter and the authentication service.
	emitter := analytics.NewEmitter(eventQueue, eventCache, lookupURL, lookupToken)
	auth.InitAuth(dbName, dbURI, signingKey, emitter)

	// Start the REST server.
	go server.Start(serverURL, signingKey, store)
}
