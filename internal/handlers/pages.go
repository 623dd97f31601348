package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	. "github.com/themizzi/storecheck/internal/logging"
)

// Alert texts, matching a stock OpenCart install
const (
	ReviewThanks   = "Thank you for your review. It has been submitted to the webmaster for approval."
	LoginWarning   = "Warning: No match for E-Mail Address and/or Password."
	cartSuccessFmt = `Success: You have added <a href="index.php?route=product/product&amp;product_id=%d">%s</a> to your <a href="index.php?route=checkout/cart">shopping cart</a>!`
)

func (s *Storefront) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", &pageData{Title: "Your Store", Products: s.opts.Catalog})
}

func (s *Storefront) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	s.render(w, r, http.StatusOK, "search", &pageData{
		Title:    "Search - " + term,
		Search:   term,
		Products: s.opts.Catalog.Search(term),
	})
}

func (s *Storefront) product(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	p, found := s.opts.Catalog.Find(id)
	if !ok || !found {
		s.render(w, r, http.StatusNotFound, "notfound", &pageData{Title: "Product not found!"})
		return
	}

	data := &pageData{Title: p.Name, Product: p, Reviews: s.reviewsOf(p.ID), Tab: "description"}
	switch r.URL.Query().Get("alert") {
	case "review":
		data.Alert = &alert{Class: "alert-success", Text: ReviewThanks}
	case "cart":
		data.Alert = &alert{Class: "alert-success", Text: template.HTML(fmt.Sprintf(cartSuccessFmt, p.ID, template.HTMLEscapeString(p.Name)))}
	}
	s.render(w, r, http.StatusOK, "product", data)
}

func (s *Storefront) writeReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	p, found := s.opts.Catalog.Find(id)
	if !ok || !found {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	form := parseReviewForm(r)
	if errs := fieldErrors(form); errs != nil {
		s.render(w, r, http.StatusOK, "product", &pageData{
			Title:   p.Name,
			Product: p,
			Reviews: s.reviewsOf(p.ID),
			Tab:     "review",
			Review:  form,
			Errors:  errs,
			Alert:   &alert{Class: "alert-danger", Text: "Warning: Please check the form carefully for errors!"},
		})
		return
	}

	s.mu.Lock()
	s.reviews[p.ID] = append(s.reviews[p.ID], Review{Author: form.Name, Text: form.Text, Rating: form.Rating, Date: time.Now()})
	s.mu.Unlock()
	L_debug("storefront: review received", "product", p.ID, "author", form.Name, "rating", form.Rating)

	http.Redirect(w, r, productURL(p.ID, "review"), http.StatusSeeOther)
}

func (s *Storefront) reviewsOf(id int) []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Review(nil), s.reviews[id]...)
}

func (s *Storefront) addToCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PostFormValue("product_id"))
	p, found := s.opts.Catalog.Find(id)
	if err != nil || !found {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil || qty < 1 {
		qty = 1
	}

	if err := s.opts.Carts.Add(r.Context(), cartID(w, r), p.ID, qty); err != nil {
		L_error("storefront: add to cart failed", "product", p.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, productURL(p.ID, "cart"), http.StatusSeeOther)
}

func (s *Storefront) checkout(w http.ResponseWriter, r *http.Request) {
	lines, err := s.cartLines(r)
	if err != nil {
		L_error("storefront: read cart failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "checkout", &pageData{Title: "Checkout", Lines: lines, Totals: totals(lines)})
}

// totals computes the order totals rows. The last row is the grand total and equals the
// sum of the others.
func totals(lines []cartLine) []totalRow {
	if len(lines) == 0 {
		return nil
	}
	var sub, eco, vat int64
	for _, l := range lines {
		q := int64(l.Quantity)
		sub += l.Product.Price * q
		eco += l.Product.EcoTax * q
		vat += l.Product.VAT() * q
	}
	return []totalRow{
		{Title: "Sub-Total", Amount: sub},
		{Title: "Eco Tax (-2.00)", Amount: eco},
		{Title: fmt.Sprintf("VAT (%d%%)", VATRate), Amount: vat},
		{Title: "Total", Amount: sub + eco + vat},
	}
}

func (s *Storefront) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", &pageData{Title: "Account Login", Submit: s.opts.Submit})
}

func (s *Storefront) login(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	data := &pageData{Title: "Account Login", Submit: s.opts.Submit, Email: form.Email}

	if errs := fieldErrors(form); errs != nil {
		data.Errors = errs
		data.Alert = &alert{Class: "alert-danger", Text: LoginWarning}
		s.render(w, r, http.StatusOK, "login", data)
		return
	}

	session, err := s.opts.Accounts.Login(form.Email, form.Password)
	if errors.Is(err, ErrBadCredentials) {
		L_info("storefront: login rejected", "email", form.Email)
		data.Alert = &alert{Class: "alert-danger", Text: LoginWarning}
		s.render(w, r, http.StatusOK, "login", data)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: CustomerCookie, Value: session, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, "index.php?route=account/account", http.StatusSeeOther)
}

func (s *Storefront) account(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(CustomerCookie)
	if err != nil {
		http.Redirect(w, r, "index.php?route=account/login", http.StatusFound)
		return
	}
	if _, ok := s.opts.Accounts.Customer(c.Value); !ok {
		http.Redirect(w, r, "index.php?route=account/login", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "account", &pageData{Title: "My Account"})
}

func (s *Storefront) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CustomerCookie); err == nil {
		s.opts.Accounts.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: CustomerCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "index.php?route=common/home", http.StatusFound)
}

func productURL(id int, alertKind string) string {
	u := "index.php?route=product/product&product_id=" + strconv.Itoa(id)
	if alertKind != "" {
		u += "&alert=" + url.QueryEscape(alertKind)
	}
	return u
}
