package config

import (
	"fmt"
	"os"
)

// Login submit-control variants rendered by the demo storefront
const (
	SubmitButton = "button" // <button type="submit">
	SubmitInput  = "input"  // <input type="submit">
	SubmitValue  = "value"  // <input type="button" value="Login">
	SubmitText   = "text"   // <button type="button">Sign In</button>
	SubmitNone   = "none"   // no control, Enter submits
)

// ServerConfig holds configuration for the demo storefront server
type ServerConfig struct {
	Port string
	// Banner is the cookie banner class rendered on every page, empty for none
	Banner string
	// Submit selects the login submit-control variant
	Submit string
	// Account is the single customer account the storefront accepts
	Account Credentials
	// RedisURL selects the Redis cart store; carts stay in memory when empty
	RedisURL string
}

// LoadServerConfig loads server configuration from environment variables
func LoadServerConfig() (ServerConfig, error) {
	return loadServerConfig(os.Getenv)
}

func loadServerConfig(getenv func(string) string) (ServerConfig, error) {
	port := getenv("PORT")
	if port == "" {
		port = "8080" // Default to port 8080
	}

	submit := getenv("STOREFRONT_SUBMIT")
	switch submit {
	case "":
		submit = SubmitButton
	case SubmitButton, SubmitInput, SubmitValue, SubmitText, SubmitNone:
	default:
		return ServerConfig{}, fmt.Errorf("STOREFRONT_SUBMIT %q is not a known variant", submit)
	}

	account, err := loadCredentials(getenv, "STOREFRONT_ACCOUNT_EMAIL", "STOREFRONT_ACCOUNT_PASSWORD")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Port:     port,
		Banner:   getenv("STOREFRONT_BANNER"),
		Submit:   submit,
		Account:  account,
		RedisURL: getenv("REDIS_URL"),
	}, nil
}
