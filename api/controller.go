// Package api exposes the crew lifecycle engine over HTTP with fiber.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"

	crew "github.com/goliatone/go-crew"
	"github.com/goliatone/go-crew/middleware/jwtware"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "crew_session"

// Routes holds the mount points of the controller
type Routes struct {
	Login    string
	Register string
	Me       string
	Users    string
	Talent   string
	Company  string
	Projects string
	Catalog  string
}

// DefaultRoutes is used when no WithRoutes option is given
var DefaultRoutes = Routes{
	Login:    "/auth/login",
	Register: "/register",
	Me:       "/me",
	Users:    "/users",
	Talent:   "/talent",
	Company:  "/companies",
	Projects: "/projects",
	Catalog:  "/catalog",
}

// Controller serves the lifecycle operations
type Controller struct {
	Service     *crew.Service
	Tokens      crew.TokenService
	Logger      crew.Logger
	Routes      Routes
	ContextKey  string
	TokenLookup string
	AuthScheme  string
	TokenTTL    time.Duration
	Debug       bool
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger crew.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRoutes overrides the mount points
func WithRoutes(routes Routes) ControllerOption {
	return func(c *Controller) {
		c.Routes = routes
	}
}

// WithTokenLookup configures where session tokens are read from, using the
// jwtware lookup syntax, e.g. "header:Authorization,cookie:crew_session".
func WithTokenLookup(lookup, scheme string) ControllerOption {
	return func(c *Controller) {
		c.TokenLookup = lookup
		c.AuthScheme = scheme
	}
}

// WithContextKey sets the fiber locals key that holds the session claims
func WithContextKey(key string) ControllerOption {
	return func(c *Controller) {
		if key != "" {
			c.ContextKey = key
		}
	}
}

// WithTokenTTL sets the session cookie lifetime
func WithTokenTTL(ttl time.Duration) ControllerOption {
	return func(c *Controller) {
		c.TokenTTL = ttl
	}
}

// WithDebug logs request payloads
func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

// NewController creates a Controller
func NewController(svc *crew.Service, tokens crew.TokenService, opts ...ControllerOption) *Controller {
	c := &Controller{
		Service:     svc,
		Tokens:      tokens,
		Logger:      crew.NopLogger{},
		Routes:      DefaultRoutes,
		ContextKey:  "user",
		TokenLookup: "header:" + fiber.HeaderAuthorization + ",cookie:" + SessionCookie,
		AuthScheme:  "Bearer",
		TokenTTL:    24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Protected returns the session middleware used by the protected routes
func (a *Controller) Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenValidator: a.Tokens,
		ContextKey:     a.ContextKey,
		TokenLookup:    a.TokenLookup,
		AuthScheme:     a.AuthScheme,
		ErrorHandler:   a.authError,
		ContextEnricher: func(ctx context.Context, claims crew.SessionClaims) context.Context {
			return crew.WithClaimsContext(ctx, claims)
		},
	})
}

// RegisterRoutes mounts every endpoint on app
func RegisterRoutes(app fiber.Router, controller *Controller) {
	r := controller.Routes

	app.Post(r.Login, controller.Login)
	app.Post(r.Register+"/join", controller.RegisterJoin)
	app.Post(r.Register+"/company", controller.RegisterCompany)

	auth := controller.Protected()

	me := app.Group(r.Me, auth)
	me.Get("/", controller.Me)
	me.Post("/password", controller.ChangePassword)
	me.Post("/availability", controller.ToggleAvailability)
	me.Post("/identity", controller.SubmitIdentity)

	users := app.Group(r.Users, auth)
	users.Get("/:id", controller.GetUser)
	users.Get("/:id/history", controller.UserHistory)
	users.Patch("/:id", controller.EditUser)
	users.Post("/:id/approve", controller.Approve)
	users.Post("/:id/block", controller.ToggleBlock)
	users.Post("/:id/remove", controller.RemoveFromCompany)
	users.Delete("/:id/projects/:project", controller.RemoveFromProject)
	users.Post("/:id/transfer", controller.RequestTransfer)
	users.Post("/:id/transfer/resolve", controller.ResolveTransfer)
	users.Post("/:id/identity/review", controller.ReviewIdentity)

	app.Get(r.Talent, auth, controller.GlobalUsers)

	companies := app.Group(r.Company, auth)
	companies.Get("/", controller.ListCompanies)
	companies.Get("/:id", controller.GetCompany)
	companies.Delete("/:id", controller.RejectCompany)
	companies.Get("/:id/members", controller.CompanyMembers)
	companies.Get("/:id/pending", controller.PendingUsers)
	companies.Get("/:id/pending/count", controller.PendingCount)
	companies.Get("/:id/transfers", controller.PendingTransfers)
	companies.Get("/:id/projects", controller.CompanyProjects)
	companies.Post("/:id/projects", controller.CreateProject)
	companies.Post("/:id/license", controller.PurchaseLicense)
	companies.Put("/:id/resume", controller.SetCompanyResume)

	projects := app.Group(r.Projects, auth)
	projects.Get("/:id", controller.GetProject)
	projects.Patch("/:id/status", controller.SetProjectStatus)

	catalog := app.Group(r.Catalog, auth)
	catalog.Get("/licenses", controller.Licenses)
	catalog.Get("/modules", controller.Modules)
	catalog.Patch("/licenses/:id", controller.UpdateLicensePrice)
}

// actorID resolves the session subject from the claims the session
// middleware placed in the user context.
func (a *Controller) actorID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := crew.ActorID(c.UserContext())
	if !ok {
		return uuid.Nil, goerrors.New("missing session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, goerrors.New(fmt.Sprintf("invalid %s identifier", name), goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("INVALID_IDENTIFIER")
	}
	return id, nil
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("MALFORMED_BODY")
	}
	return nil
}

func (a *Controller) debug(label string, payload any) {
	if a.Debug {
		a.Logger.Debug("%s %s", strings.ToLower(label), print.MaybePrettyJSON(payload))
	}
}
