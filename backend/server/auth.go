package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"mangrovewatch/backend/db"
	"mangrovewatch/backend/server/api"
)

const tokenLifetime = 24 * time.Hour

// Identical for unknown user and wrong password, so the endpoint does not
// leak which usernames exist.
const loginFailedMessage = "Invalid username or password."

func Signup(c *gin.Context) {
	var args api.SignupArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid signup request: " + err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(args.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to create the user."})
		return
	}

	dbc, err := getServerDB()
	if err != nil {
		log.Errorf("Error connecting to DB: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to create the user."})
		return
	}

	user, err := db.CreateUser(dbc, args.Username, args.Email, string(hash))
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Status: "error", Message: "Username or email already taken."})
			return
		}
		log.Errorf("Failed to create user %s: %v", args.Username, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to create the user."})
		return
	}

	c.JSON(http.StatusOK, api.SignupResponse{
		Status:   "success",
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

func Login(c *gin.Context) {
	var args api.LoginArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid login request: " + err.Error()})
		return
	}

	dbc, err := getServerDB()
	if err != nil {
		log.Errorf("Error connecting to DB: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Login failed."})
		return
	}

	user, err := db.GetUserByUsername(dbc, args.Username)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Status: "error", Message: loginFailedMessage})
			return
		}
		log.Errorf("Failed to look up user %s: %v", args.Username, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Login failed."})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(args.Password)) != nil {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Status: "error", Message: loginFailedMessage})
		return
	}

	token, err := issueToken(user.ID, user.Username)
	if err != nil {
		log.Errorf("Failed to issue token for %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Login failed."})
		return
	}

	c.JSON(http.StatusOK, api.LoginResponse{
		Status:   "success",
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

func issueToken(userID int64, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(serverConfig.JWTSecret))
}
