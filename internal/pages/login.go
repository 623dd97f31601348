package pages

import (
	"context"

	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/locator"
)

// WarningMessage is the alert shown after rejected credentials
var WarningMessage = locator.CSS(".alert.alert-danger.alert-dismissible")

// AccountRoute is where a successful login lands
const AccountRoute = "account/account"

// LoginPage wraps the login commands
type LoginPage struct {
	c *commands.Commander
}

// NewLoginPage returns the login page object
func NewLoginPage(c *commands.Commander) LoginPage {
	return LoginPage{c: c}
}

// Open navigates to the login page
func (l LoginPage) Open(ctx context.Context) error {
	return l.c.OpenLoginPage(ctx)
}

// SuccessLogin signs in with the default credentials and waits for the account page
func (l LoginPage) SuccessLogin(ctx context.Context) error {
	if err := l.c.Login(ctx); err != nil {
		return err
	}
	return l.c.WaitForRoute(ctx, AccountRoute)
}

// FailedLogin submits the invalid credentials and requires a visible error
func (l LoginPage) FailedLogin(ctx context.Context) error {
	return l.c.LoginShouldFail(ctx)
}

// WarningMessage returns the text of the rejection alert
func (l LoginPage) WarningMessage(ctx context.Context) (string, error) {
	return l.c.VisibleText(ctx, WarningMessage)
}
