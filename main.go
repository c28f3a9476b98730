package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"llama-io/backend/api-service/handlers"
	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/repositories"
	"llama-io/backend/api-service/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Llama.io API service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_SKIPPED, Description: No .env file loaded: %v", err)
	}

	mongoURI := getenv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getenv("MONGO_DB_NAME", "llama")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	database := client.Database(mongoDBName)

	storeBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EntityStoreCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	taskRepository := repositories.NewTaskRepository(database.Collection("tasks"), storeBreaker)
	userRepository := repositories.NewUserRepository(database.Collection("users"), storeBreaker)

	taskService := services.NewTaskService(taskRepository, userRepository)
	userService := services.NewUserService(userRepository, taskRepository)

	taskHandler := handlers.NewTaskHandler(taskService)
	userHandler := handlers.NewUserHandler(userService)

	r := mux.NewRouter()

	r.HandleFunc("/api", handlers.APIRoot).Methods(http.MethodGet)

	r.HandleFunc("/api/tasks", taskHandler.GetTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id}", taskHandler.UpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{id}", taskHandler.DeleteTask).Methods(http.MethodDelete)

	r.HandleFunc("/api/users", userHandler.GetUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/users", userHandler.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}", userHandler.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", userHandler.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}", userHandler.DeleteUser).Methods(http.MethodDelete)

	// Unmatched paths and methods both get the JSON 404 envelope.
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.NotFound)

	corsRouter := enableCORS(r)

	serverPort := getenv("SERVER_PORT", "4000")
	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
