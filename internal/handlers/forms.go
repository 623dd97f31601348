package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginForm is the posted login form
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ReviewForm is the posted product review
type ReviewForm struct {
	Name   string `validate:"min=3,max=25"`
	Text   string `validate:"min=25,max=1000"`
	Rating int    `validate:"min=1,max=5"`
}

// fieldMessages are shown under the offending field
var fieldMessages = map[string]string{
	"Email":  "E-Mail Address does not appear to be valid!",
	"Name":   "Review Name must be between 3 and 25 characters!",
	"Text":   "Review Text must be between 25 and 1000 characters!",
	"Rating": "Please select a review rating!",
}

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
}

func parseReviewForm(r *http.Request) ReviewForm {
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	return ReviewForm{
		Name:   r.PostFormValue("name"),
		Text:   r.PostFormValue("text"),
		Rating: rating,
	}
}

// fieldErrors validates form and maps each failing field to its message
func fieldErrors(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is required!"
		}
		out[fe.Field()] = msg
	}
	return out
}
