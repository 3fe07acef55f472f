package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/jghoshh/trailhead/backend/analytics"
	storage "github.com/jghoshh/trailhead/backend/storage/persistent"
	"github.com/jghoshh/trailhead/lib/utils"
	"github.com/jghoshh/trailhead/models"
)

// store holds the interface to the persistent storage system.
var store storage.StorageInterface

// jwtSigningKey holds the key used for signing and verifying JWT tokens.
var jwtSigningKey string

// emitter is the analytics side channel for login/register events.
var emitter *analytics.Emitter

const (
	authTokenTTL    = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// InitAuth initializes the authentication system: the storage backend, the
// JWT signing key, and the analytics emitter. It panics on storage
// initialization failure; auth is part of the process startup contract.
func InitAuth(dbName, mongodbURI, signingKey string, em *analytics.Emitter) {
	var err error
	jwtSigningKey = signingKey
	store, err = storage.NewStorage(dbName, mongodbURI)
	if err != nil {
		panic("Error initializing storage: " + err.Error())
	}
	emitter = em
}

// CreateAuthToken creates a signed, short-lived JWT for a user.
func CreateAuthToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(authTokenTTL).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))
	if err != nil {
		return "", errors.New("failed to create auth token")
	}

	return signedToken, nil
}

// CreateRefreshToken creates a signed, longer-lived refresh JWT for a user.
func CreateRefreshToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(refreshTokenTTL).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))
	if err != nil {
		return "", errors.New("failed to create refresh token")
	}

	return signedToken, nil
}

// CreateTokens creates an auth token and refresh token pair for a user.
func CreateTokens(userID string) (string, string, error) {
	authToken, err := CreateAuthToken(userID)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := CreateRefreshToken(userID)
	if err != nil {
		return "", "", err
	}

	return authToken, refreshToken, nil
}

// DecodeToken validates a signed JWT and returns its claims.
func DecodeToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSigningKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// CheckCredentials verifies the shape of sign-up credentials.
func CheckCredentials(username, email, password string) (bool, error) {
	if len(username) < 2 {
		return false, errors.New("invalid username")
	}
	if !utils.ValidateEmail(email) {
		return false, errors.New("invalid email")
	}
	if !utils.ValidatePassword(password) {
		return false, errors.New("password must be at least 8 characters and contain both letters and numbers")
	}
	return true, nil
}

// SignUp registers a new user, writes the password hash, and returns the
// user with a fresh token pair. One register event is emitted.
func SignUp(ctx context.Context, username, email, password string) (*models.User, string, string, error) {
	if _, err := CheckCredentials(username, email, password); err != nil {
		return nil, "", "", err
	}

	count, err := store.UserCount(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
	if err != nil {
		return nil, "", "", fmt.Errorf("checking existing users: %w", err)
	}
	if count > 0 {
		return nil, "", "", errors.New("a user with this username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", fmt.Errorf("hashing password: %w", err)
	}

	user, err := store.AddUser(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, "", "", fmt.Errorf("creating user: %w", err)
	}

	authToken, refreshToken, err := issueTokens(ctx, user.ID)
	if err != nil {
		return nil, "", "", err
	}

	if emitter != nil {
		emitter.Track(user.ID.Hex(), models.EventRegister, map[string]interface{}{
			"username": username,
		})
	}
	return user, authToken, refreshToken, nil
}

// SignIn verifies a username (or email) and password and returns the user
// with a fresh token pair. One login event is emitted.
func SignIn(ctx context.Context, identifier, password string) (*models.User, string, string, error) {
	user, err := store.FindUser(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", "", errors.New("invalid credentials")
		}
		return nil, "", "", fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", errors.New("invalid credentials")
	}

	authToken, refreshToken, err := issueTokens(ctx, user.ID)
	if err != nil {
		return nil, "", "", err
	}

	if emitter != nil {
		emitter.Track(user.ID.Hex(), models.EventLogin, map[string]interface{}{
			"username": user.Username,
		})
	}
	return user, authToken, refreshToken, nil
}

// RefreshTokens exchanges a valid stored refresh token for a new pair.
func RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := DecodeToken(refreshToken)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}
	userID, _ := claims["id"].(string)
	if userID == "" {
		return "", "", errors.New("invalid refresh token")
	}

	stored, err := store.FindRefreshToken(ctx, bson.M{"token": refreshToken})
	if err != nil {
		return "", "", errors.New("refresh token not recognized")
	}
	if time.Now().After(stored.Expiry) {
		return "", "", errors.New("refresh token expired")
	}

	return issueTokens(ctx, stored.UserID)
}

// SignOut invalidates the user's stored refresh tokens.
func SignOut(ctx context.Context, userID primitive.ObjectID) error {
	return store.DeleteRefreshToken(ctx, bson.M{"user_id": userID})
}

func issueTokens(ctx context.Context, userID primitive.ObjectID) (string, string, error) {
	authToken, refreshToken, err := CreateTokens(userID.Hex())
	if err != nil {
		return "", "", err
	}
	err = store.AddRefreshToken(ctx, &models.RefreshToken{
		UserID: userID,
		Token:  refreshToken,
		Expiry: time.Now().Add(refreshTokenTTL),
	})
	if err != nil {
		return "", "", fmt.Errorf("storing refresh token: %w", err)
	}
	return authToken, refreshToken, nil
}
