package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/form3tech-oss/jwt-go"
	"github.com/zalando/go-keyring"
)

// jwtSigningKey is used to verify JWT tokens handed out by the server.
var jwtSigningKey string

// KeyringKey is used to store and retrieve the JWT token from the system keyring.
var KeyringKey string

// RefreshKeyringKey is used to store and retrieve the refresh token from the system keyring.
var RefreshKeyringKey string

// ServerURL is the URL of the server the client is connecting to.
var ServerURL string

// httpClient is the HTTP client used to make requests to the server.
var httpClient = &http.Client{}

// KeyringService is the name of the service in the system keyring where the
// JWT token and refresh token are stored.
const KeyringService = "Trailhead"

// Session is the result of a successful sign-in or sign-up.
type Session struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// InitAuthClient initializes the client's signing key, keyring keys and
// server URL. It must be called before any other function in the package.
func InitAuthClient(serverURL, signingKey, authToken, authTokenRefresh string) {
	jwtSigningKey = signingKey
	KeyringKey = authToken
	RefreshKeyringKey = authTokenRefresh
	ServerURL = serverURL
}

// decodeJWT decodes a JWT token and returns the claims contained within it.
func decodeJWT(tokenStr string) (jwt.MapClaims, error) {
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

// CurrentUserID returns the user id from the keyring-held token, or an
// empty string when no valid token is stored.
func CurrentUserID() string {
	tokenStr, err := keyring.Get(KeyringService, KeyringKey)
	if err != nil {
		return ""
	}
	claims, err := decodeJWT(tokenStr)
	if err != nil {
		return ""
	}
	id, _ := claims["id"].(string)
	return id
}

// ClearKeyring removes the JWT token and refresh token from the system keyring.
func ClearKeyring() error {
	if err := keyring.Delete(KeyringService, KeyringKey); err != nil && err != keyring.ErrNotFound {
		return errors.New("failed to delete access token from keyring: " + err.Error())
	}
	if err := keyring.Delete(KeyringService, RefreshKeyringKey); err != nil && err != keyring.ErrNotFound {
		return errors.New("failed to delete refresh token from keyring: " + err.Error())
	}
	return nil
}

func storeSession(s *Session) error {
	if err := keyring.Set(KeyringService, KeyringKey, s.Token); err != nil {
		return errors.New("failed to store access token in keyring: " + err.Error())
	}
	if err := keyring.Set(KeyringService, RefreshKeyringKey, s.RefreshToken); err != nil {
		return errors.New("failed to store refresh token in keyring: " + err.Error())
	}
	return nil
}

func post(path string, payload interface{}) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Post(ServerURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, errors.New("could not reach the server: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var serverErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &serverErr) == nil && serverErr.Error != "" {
			return nil, errors.New(serverErr.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	session := &Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SignIn authenticates against the server and stores the token pair in the
// system keyring.
func SignIn(username, password string) (*Session, error) {
	session, err := post("/auth/signin", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if err := storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// SignUp registers a new account and stores the token pair in the system
// keyring.
func SignUp(username, email, password string) (*Session, error) {
	session, err := post("/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if err := storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Refresh exchanges the keyring-held refresh token for a new token pair.
func Refresh() (*Session, error) {
	refreshToken, err := keyring.Get(KeyringService, RefreshKeyringKey)
	if err != nil {
		return nil, errors.New("no refresh token stored")
	}
	session, err := post("/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	if err := storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}
