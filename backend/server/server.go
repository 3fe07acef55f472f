package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jghoshh/trailhead/backend/server/auth"
	contextKey "github.com/jghoshh/trailhead/backend/server/context_key"
	storage "github.com/jghoshh/trailhead/backend/storage/persistent"
	"github.com/jghoshh/trailhead/progress"
	"github.com/jghoshh/trailhead/roadmap"
)

// store is the persistent storage backend the read endpoints use.
var store storage.StorageInterface

// jwtMiddleware reads a bearer JWT from the Authorization header. A valid
// token puts the user's id on the request context; a validation error is
// put on the context instead. The request always continues: each handler
// decides how to react to a missing or bad identity.
func jwtMiddleware(signingKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			splitToken := strings.Split(authHeader, "Bearer ")
			if len(splitToken) == 2 {
				token, err := jwt.Parse(splitToken[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(signingKey), nil
				})
				if err != nil {
					ctx := context.WithValue(r.Context(), contextKey.JwtErrorKey, err)
					r = r.WithContext(ctx)
				} else if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
					ctx := context.WithValue(r.Context(), contextKey.UserIDKey, claims["id"])
					r = r.WithContext(ctx)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and provides a generic error message to the client.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, refreshToken, err := auth.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{
		UserID:       user.ID.Hex(),
		Email:        user.Email,
		Token:        token,
		RefreshToken: refreshToken,
	})
}

func signInHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, refreshToken, err := auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		UserID:       user.ID.Hex(),
		Email:        user.Email,
		Token:        token,
		RefreshToken: refreshToken,
	})
}

func refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, refreshToken, err := auth.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, RefreshToken: refreshToken})
}

// roadmapHandler serves the bare template. No auth needed; the template is
// the same for everyone.
func roadmapHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, roadmap.Phases())
}

// progressHandler serves the authenticated user's merged view model plus
// derived aggregates. A store outage degrades to the template-only view
// with a 200, never a blank response.
func progressHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextKey.UserIDKey).(string)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	record, err := store.GetProgress(r.Context(), userID)
	degraded := false
	if err != nil {
		log.Printf("loading progress for %s: %v", userID, err)
		record = nil
		degraded = true
	}

	phases := progress.Merge(roadmap.Phases(), record)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phases":     phases,
		"aggregates": progress.ComputeAggregates(phases),
		"degraded":   degraded,
	})
}

// Start initializes and starts the REST server on the given URL. The
// storage backend must already be connected.
func Start(serverURL, signingKey string, s storage.StorageInterface) {
	store = s

	r := mux.NewRouter()
	r.HandleFunc("/auth/signup", signUpHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", signInHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", refreshHandler).Methods(http.MethodPost)
	r.HandleFunc("/roadmap", roadmapHandler).Methods(http.MethodGet)
	r.HandleFunc("/progress", progressHandler).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = jwtMiddleware(signingKey, handler)
	handler = recoveryMiddleware(handler)

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	handler = handlers.CORS(corsOrigins, corsMethods, corsHeaders)(handler)

	handler = handlers.LoggingHandler(os.Stdout, handler)

	u, err := url.Parse(serverURL)
	if err != nil {
		log.Fatalf("invalid server url %q: %v", serverURL, err)
	}
	addr := u.Host
	if addr == "" {
		addr = serverURL
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
