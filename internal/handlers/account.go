package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/themizzi/storecheck/internal/config"
)

// ErrBadCredentials is returned for an unknown email or a wrong password
var ErrBadCredentials = errors.New("no match for e-mail address and/or password")

// Accounts holds the customer accounts and their login sessions
type Accounts struct {
	mu       sync.Mutex
	hashes   map[string][]byte
	sessions map[string]string
}

// NewAccounts registers the given customers. Passwords are kept only as bcrypt hashes.
func NewAccounts(customers ...config.Credentials) (*Accounts, error) {
	a := &Accounts{
		hashes:   make(map[string][]byte),
		sessions: make(map[string]string),
	}
	for _, c := range customers {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Secret.Reveal()), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", c.Identifier, err)
		}
		a.hashes[strings.ToLower(c.Identifier)] = hash
	}
	return a, nil
}

// Login checks the credentials and opens a session, returning its id
func (a *Accounts) Login(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	a.mu.Lock()
	hash, ok := a.hashes[email]
	a.mu.Unlock()
	if !ok {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	id := uuid.New().String()
	a.mu.Lock()
	a.sessions[id] = email
	a.mu.Unlock()
	return id, nil
}

// Customer returns the email of the session, if it is logged in
func (a *Accounts) Customer(sessionID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email, ok := a.sessions[sessionID]
	return email, ok
}

// Logout ends a session
func (a *Accounts) Logout(sessionID string) {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
}
