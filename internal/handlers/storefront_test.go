package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/themizzi/storecheck/internal/config"
)

const (
	testEmail    = "shopper@example.com"
	testPassword = "correct horse"
)

func newTestStorefront(t *testing.T, opts Options) *Storefront {
	t.Helper()
	if opts.Accounts == nil {
		accounts, err := NewAccounts(config.Credentials{Identifier: testEmail, Secret: testPassword})
		if err != nil {
			t.Fatalf("NewAccounts() error = %v", err)
		}
		opts.Accounts = accounts
	}
	s, err := NewStorefront(opts)
	if err != nil {
		t.Fatalf("NewStorefront() error = %v", err)
	}
	return s
}

func do(s *Storefront, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestStorefront_Routes(t *testing.T) {
	s := newTestStorefront(t, Options{})

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
		checkContent   []string
	}{
		{
			name:           "root redirects home",
			method:         http.MethodGet,
			target:         "/",
			expectedStatus: http.StatusFound,
		},
		{
			name:           "home lists the catalog",
			method:         http.MethodGet,
			target:         "/index.php?route=common/home",
			expectedStatus: http.StatusOK,
			checkContent:   []string{`<div class="col mb-3">`, "MacBook", "iPhone", `title="Your Store"`, `placeholder="Search"`},
		},
		{
			name:           "empty route is home",
			method:         http.MethodGet,
			target:         "/index.php",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"Featured"},
		},
		{
			name:           "search",
			method:         http.MethodGet,
			target:         "/index.php?route=product/search&search=iphone",
			expectedStatus: http.StatusOK,
			checkContent:   []string{`id="product-list"`, "iPhone"},
		},
		{
			name:           "search without matches",
			method:         http.MethodGet,
			target:         "/index.php?route=product/search&search=toaster",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"There is no product that matches the search criteria."},
		},
		{
			name:           "product page",
			method:         http.MethodGet,
			target:         "/index.php?route=product/product&product_id=40",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"<h1>iPhone</h1>", `<span class="price-new">$123.20</span>`, "<b>Revolutionary phone</b>", "Reviews (0)", `id="button-cart"`},
		},
		{
			name:           "unknown product",
			method:         http.MethodGet,
			target:         "/index.php?route=product/product&product_id=999",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			target:         "/index.php?route=extension/nothing",
			expectedStatus: http.StatusNotFound,
			checkContent:   []string{"Page Not Found"},
		},
		{
			name:           "wrong method",
			method:         http.MethodPost,
			target:         "/index.php?route=common/home",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "health check",
			method:         http.MethodGet,
			target:         "/healthz",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, tt.method, tt.target, nil)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			body := w.Body.String()
			for _, content := range tt.checkContent {
				if !strings.Contains(body, content) {
					t.Errorf("expected response to contain '%s', but it was not found", content)
				}
			}
		})
	}
}

func TestStorefront_CookieBanner(t *testing.T) {
	consent := &http.Cookie{Name: ConsentCookie, Value: "1"}

	tests := []struct {
		name       string
		banner     string
		cookies    []*http.Cookie
		wantBanner bool
	}{
		{name: "shown without consent", banner: "cookie-notice", wantBanner: true},
		{name: "hidden after consent", banner: "cookie-notice", cookies: []*http.Cookie{consent}},
		{name: "disabled", banner: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStorefront(t, Options{Banner: tt.banner})

			body := do(s, http.MethodGet, "/index.php?route=common/home", nil, tt.cookies...).Body.String()

			if got := strings.Contains(body, `id="cookie-consent"`); got != tt.wantBanner {
				t.Errorf("banner rendered = %v, want %v", got, tt.wantBanner)
			}
			if tt.wantBanner && !strings.Contains(body, `class="cookie-notice"`) {
				t.Error("expected the banner to carry the configured class")
			}
		})
	}
}

func TestStorefront_LoginSubmitVariants(t *testing.T) {
	tests := []struct {
		submit string
		want   string
		absent []string
	}{
		{submit: config.SubmitButton, want: `<button type="submit" class="btn btn-primary">Login</button>`},
		{submit: config.SubmitInput, want: `<input type="submit" value="Login" class="btn btn-primary">`},
		{submit: config.SubmitValue, want: `<input type="button" value="Login" class="btn btn-primary" data-submit="click">`},
		{submit: config.SubmitText, want: `<button type="button" class="btn btn-primary" data-submit="click">Sign In</button>`},
		{submit: config.SubmitNone, want: `data-submit="enter"`, absent: []string{`type="submit"`, `value="Login"`}},
	}

	for _, tt := range tests {
		t.Run(tt.submit, func(t *testing.T) {
			s := newTestStorefront(t, Options{Submit: tt.submit})

			body := do(s, http.MethodGet, "/index.php?route=account/login", nil).Body.String()

			if !strings.Contains(body, tt.want) {
				t.Errorf("expected login page to contain %q", tt.want)
			}
			for _, a := range tt.absent {
				if strings.Contains(body, a) {
					t.Errorf("expected login page not to contain %q", a)
				}
			}
		})
	}
}

func TestStorefront_Login(t *testing.T) {
	t.Run("valid credentials open a session", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		w := do(s, http.MethodPost, "/index.php?route=account/login.login",
			url.Values{"email": {testEmail}, "password": {testPassword}})

		if w.Code != http.StatusSeeOther {
			t.Fatalf("expected status %d, got %d", http.StatusSeeOther, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/index.php?route=account/account" {
			t.Errorf("unexpected redirect %q", loc)
		}
		session := cookieNamed(w, CustomerCookie)
		if session == nil {
			t.Fatal("expected a customer cookie")
		}

		account := do(s, http.MethodGet, "/index.php?route=account/account", nil, session)
		if account.Code != http.StatusOK {
			t.Fatalf("expected account page, got status %d", account.Code)
		}
		if !strings.Contains(account.Body.String(), "Logout") {
			t.Error("expected the account page to offer logout")
		}

		do(s, http.MethodGet, "/index.php?route=account/logout", nil, session)
		if w := do(s, http.MethodGet, "/index.php?route=account/account", nil, session); w.Code != http.StatusFound {
			t.Errorf("expected a redirect after logout, got status %d", w.Code)
		}
	})

	t.Run("wrong password shows the warning", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		w := do(s, http.MethodPost, "/index.php?route=account/login.login",
			url.Values{"email": {testEmail}, "password": {"nope"}})

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `class="alert alert-danger alert-dismissible"`) || !strings.Contains(body, LoginWarning) {
			t.Error("expected the login warning alert")
		}
		if cookieNamed(w, CustomerCookie) != nil {
			t.Error("a rejected login must not set a session")
		}
	})

	t.Run("invalid email is flagged on the field", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		body := do(s, http.MethodPost, "/index.php?route=account/login.login",
			url.Values{"email": {"not-an-email"}, "password": {"x"}}).Body.String()

		if !strings.Contains(body, `<div id="error-email" class="invalid-feedback d-block">E-Mail Address does not appear to be valid!</div>`) {
			t.Error("expected the email field error")
		}
		if !strings.Contains(body, `value="not-an-email"`) {
			t.Error("expected the email to be kept in the form")
		}
	})

	t.Run("account requires a session", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		w := do(s, http.MethodGet, "/index.php?route=account/account", nil)

		if w.Code != http.StatusFound {
			t.Errorf("expected status %d, got %d", http.StatusFound, w.Code)
		}
	})
}

func TestStorefront_Review(t *testing.T) {
	t.Run("valid review is thanked", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		w := do(s, http.MethodPost, "/index.php?route=product/review&product_id=40", url.Values{
			"name":   {"Ana"},
			"text":   {"Great phone, the battery lasts all day long."},
			"rating": {"5"},
		})

		if w.Code != http.StatusSeeOther {
			t.Fatalf("expected status %d, got %d", http.StatusSeeOther, w.Code)
		}
		loc := w.Header().Get("Location")
		if loc != "/index.php?route=product/product&product_id=40&alert=review" {
			t.Fatalf("unexpected redirect %q", loc)
		}

		body := do(s, http.MethodGet, loc, nil).Body.String()
		if !strings.Contains(body, ReviewThanks) {
			t.Error("expected the review thanks alert")
		}
		if !strings.Contains(body, "Reviews (1)") {
			t.Error("expected the review count to include the new review")
		}
	})

	t.Run("short review keeps the form open", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		body := do(s, http.MethodPost, "/index.php?route=product/review&product_id=40", url.Values{
			"name": {"Al"},
			"text": {"Too short"},
		}).Body.String()

		for _, want := range []string{
			`id="tab-review" class="tab-pane active"`,
			"Review Name must be between 3 and 25 characters!",
			"Review Text must be between 25 and 1000 characters!",
			"Please select a review rating!",
			"Warning: Please check the form carefully for errors!",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected response to contain '%s'", want)
			}
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		s := newTestStorefront(t, Options{})

		w := do(s, http.MethodPost, "/index.php?route=product/review&product_id=1", url.Values{"name": {"Ana"}})

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestStorefront_CartAndCheckout(t *testing.T) {
	s := newTestStorefront(t, Options{})

	empty := do(s, http.MethodGet, "/index.php?route=checkout/checkout", nil).Body.String()
	if !strings.Contains(empty, "Your shopping cart is empty!") {
		t.Error("expected an empty cart message")
	}

	w := do(s, http.MethodPost, "/index.php?route=checkout/cart.add", url.Values{"product_id": {"40"}, "quantity": {"2"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, w.Code)
	}
	cart := cookieNamed(w, CartCookie)
	if cart == nil {
		t.Fatal("expected a cart cookie")
	}

	product := do(s, http.MethodGet, w.Header().Get("Location"), nil, cart).Body.String()
	if !strings.Contains(product, `class="alert alert-success alert-dismissible">Success: You have added`) {
		t.Error("expected the cart success alert")
	}
	if !strings.Contains(product, "2 item(s) - $246.40") {
		t.Error("expected the header cart to show the quantity and total")
	}

	body := do(s, http.MethodGet, "/index.php?route=checkout/checkout", nil, cart).Body.String()
	for _, want := range []string{
		`<form id="form-register">`,
		"<strong>login page</strong>",
		"<strong>Sub-Total:</strong></td><td class=\"text-end\">$202.00</td>",
		"<strong>Eco Tax (-2.00):</strong></td><td class=\"text-end\">$4.00</td>",
		"<strong>VAT (20%):</strong></td><td class=\"text-end\">$40.40</td>",
		"<strong>Total:</strong></td><td class=\"text-end\">$246.40</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected checkout to contain '%s'", want)
		}
	}
}

func TestStorefront_AddToCartUnknownProduct(t *testing.T) {
	s := newTestStorefront(t, Options{})

	w := do(s, http.MethodPost, "/index.php?route=checkout/cart.add", url.Values{"product_id": {"999"}})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestTotals_LastRowIsTheSum(t *testing.T) {
	catalog := DefaultCatalog()
	macbook, _ := catalog.Find(43)
	iphone, _ := catalog.Find(40)
	lines := []cartLine{
		{Product: macbook, Quantity: 1, Total: macbook.UnitPrice()},
		{Product: iphone, Quantity: 3, Total: iphone.UnitPrice() * 3},
	}

	rows := totals(lines)

	if len(rows) != 4 {
		t.Fatalf("expected 4 totals rows, got %d", len(rows))
	}
	var sum, lineSum int64
	for _, r := range rows[:3] {
		sum += r.Amount
	}
	for _, l := range lines {
		lineSum += l.Total
	}
	if rows[3].Amount != sum {
		t.Errorf("total %d does not equal the sum of rows %d", rows[3].Amount, sum)
	}
	if rows[3].Amount != lineSum {
		t.Errorf("total %d does not equal the sum of lines %d", rows[3].Amount, lineSum)
	}
	if totals(nil) != nil {
		t.Error("an empty cart has no totals")
	}
}

func TestStorefront_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestStorefront(t, Options{Registry: reg})

	do(s, http.MethodGet, "/index.php?route=common/home", nil)
	w := do(s, http.MethodGet, "/metrics", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	want := `storefront_requests_total{method="GET",route="common/home",status="200"} 1`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("expected metrics to contain %q", want)
	}
}
