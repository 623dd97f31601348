// Package handlers implements the demo storefront used as the acceptance target. It
// renders OpenCart style markup under index.php?route=... so the suite's selectors and
// fallbacks can be exercised against a real browser.
package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/themizzi/storecheck/internal/config"
	. "github.com/themizzi/storecheck/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// Cookies set by the storefront
const (
	ConsentCookie  = "cookie_consent"
	CartCookie     = "storecheck_cart"
	CustomerCookie = "storecheck_customer"
)

// Options configures a Storefront
type Options struct {
	// Banner is the class of the cookie banner, empty for none
	Banner string
	// Submit selects the login submit-control variant (config.Submit*)
	Submit   string
	Catalog  Catalog
	Carts    CartStore
	Accounts *Accounts
	// Registry receives the request metrics; a private registry is used when nil
	Registry *prometheus.Registry
}

// Review is an approved or pending product review
type Review struct {
	Author string
	Text   string
	Rating int
	Date   time.Time
}

// Storefront serves every storefront route
type Storefront struct {
	opts   Options
	tmpl   *template.Template
	router chi.Router

	mu      sync.Mutex
	reviews map[int][]Review

	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewStorefront parses the templates and builds the router
func NewStorefront(opts Options) (*Storefront, error) {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Carts == nil {
		opts.Carts = NewMemoryCartStore()
	}
	if opts.Submit == "" {
		opts.Submit = config.SubmitButton
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Accounts == nil {
		accounts, err := NewAccounts()
		if err != nil {
			return nil, err
		}
		opts.Accounts = accounts
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"money": Money}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	factory := promauto.With(opts.Registry)
	s := &Storefront{
		opts:    opts,
		tmpl:    tmpl,
		reviews: make(map[int][]Review),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_request_duration_seconds",
			Help:    "Duration of storefront requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_requests_total",
			Help: "Total number of storefront requests.",
		}, []string{"route", "method", "status"}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index.php?route=common/home", http.StatusFound)
	})
	r.HandleFunc("/index.php", s.dispatch)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	s.router = r

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Storefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// dispatch routes OpenCart style requests by their route query parameter
func (s *Storefront) dispatch(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")

	type endpoint struct {
		method  string
		handler http.HandlerFunc
	}
	endpoints := map[string]endpoint{
		"":                    {http.MethodGet, s.home},
		"common/home":         {http.MethodGet, s.home},
		"product/search":      {http.MethodGet, s.search},
		"product/product":     {http.MethodGet, s.product},
		"product/review":      {http.MethodPost, s.writeReview},
		"checkout/cart.add":   {http.MethodPost, s.addToCart},
		"checkout/cart":       {http.MethodGet, s.checkout},
		"checkout/checkout":   {http.MethodGet, s.checkout},
		"account/login":       {http.MethodGet, s.loginPage},
		"account/login.login": {http.MethodPost, s.login},
		"account/account":     {http.MethodGet, s.account},
		"account/logout":      {http.MethodGet, s.logout},
	}

	ep, ok := endpoints[route]
	if !ok {
		s.render(w, r, http.StatusNotFound, "notfound", &pageData{Title: "Page Not Found"})
		return
	}
	if r.Method != ep.method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ep.handler(w, r)
}

// metricsMiddleware records RED metrics labelled by storefront route
func (s *Storefront) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if q := r.URL.Query().Get("route"); q != "" {
			route = q
		}
		status := strconv.Itoa(ww.Status())
		s.duration.WithLabelValues(route, r.Method, status).Observe(time.Since(start).Seconds())
		s.requests.WithLabelValues(route, r.Method, status).Inc()
	})
}

// alert is a dismissible notice rendered at the top of the content
type alert struct {
	Class string
	Text  template.HTML
}

type cartLine struct {
	Product  Product
	Quantity int
	Total    int64
}

type totalRow struct {
	Title  string
	Amount int64
}

// pageData carries the layout fields plus whatever the page shows
type pageData struct {
	Title     string
	Banner    string
	Customer  string
	CartCount int
	CartTotal int64
	Alert     *alert

	Products []Product
	Search   string
	Product  Product
	Reviews  []Review
	Tab      string
	Review   ReviewForm

	Submit string
	Email  string
	Errors map[string]string

	Lines  []cartLine
	Totals []totalRow
}

// render fills the layout fields and executes the named page template
func (s *Storefront) render(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	if _, err := r.Cookie(ConsentCookie); err != nil {
		data.Banner = s.opts.Banner
	}
	if c, err := r.Cookie(CustomerCookie); err == nil {
		data.Customer, _ = s.opts.Accounts.Customer(c.Value)
	}
	if lines, err := s.cartLines(r); err == nil {
		for _, l := range lines {
			data.CartCount += l.Quantity
			data.CartTotal += l.Total
		}
	} else {
		L_warn("storefront: cart unavailable", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		L_error("storefront: render failed", "template", name, "error", err)
	}
}

// cartLines reads the cart of the request in catalog order
func (s *Storefront) cartLines(r *http.Request) ([]cartLine, error) {
	c, err := r.Cookie(CartCookie)
	if err != nil {
		return nil, nil
	}
	items, err := s.opts.Carts.Items(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	var lines []cartLine
	for id, qty := range items {
		p, ok := s.opts.Catalog.Find(id)
		if !ok || qty <= 0 {
			continue
		}
		lines = append(lines, cartLine{Product: p, Quantity: qty, Total: p.UnitPrice() * int64(qty)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product.Name < lines[j].Product.Name })
	return lines, nil
}

// cartID returns the cart of the request, issuing a new cart cookie if needed
func cartID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CartCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: CartCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return id
}

func productID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("product_id"))
	return id, err == nil
}
