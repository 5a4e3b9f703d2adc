// Package pages registers the CaseDesk screens with a navigation table.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yshengliao/casedesk/nav"
	"github.com/yshengliao/casedesk/services"
)

// Permission and role names used by the route table.
const (
	PermViewGuests  = "view_guests"
	PermViewReports = "view_reports"

	RoleAdministrator = "administrator"
	RoleSupervisor    = "supervisor"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("pages").
		Funcs(template.FuncMap{
			"date": func(t time.Time) string { return t.Format("2006-01-02") },
		}).
		ParseFS(templateFS, "templates/*.html"),
)

type entry struct {
	pattern string
	def     nav.RouteDef
}

// Register adds every screen to table in match order. Screens read their
// data from svc.
func Register(table *nav.Table, svc services.Services) error {
	p := &screens{svc: svc}
	entries := []entry{
		{"/", static("login")},
		{"/recovery", static("recovery")},
		{"/dashboard", nav.RouteConfig{Component: p.dashboard, RequiresAuth: true}},
		{"/guests", nav.RouteConfig{
			Component:           p.guests,
			RequiresAuth:        true,
			RequiredPermissions: []string{PermViewGuests},
		}},
		{"/guests/:guestId", nav.RouteConfig{
			Component:           p.guest,
			RequiresAuth:        true,
			RequiredPermissions: []string{PermViewGuests},
		}},
		{"/centers", nav.RouteConfig{Component: p.centers, RequiresAuth: true}},
		{"/centers/:centerId", nav.RouteConfig{Component: p.center, RequiresAuth: true}},
		{"/centers/:centerId/guests/:guestId", nav.RouteConfig{
			Component:           p.centerGuest,
			RequiresAuth:        true,
			RequiredPermissions: []string{PermViewGuests},
		}},
		{"/users", nav.RouteConfig{
			Component:     p.users,
			RequiresAuth:  true,
			RequiredRoles: []string{RoleAdministrator},
		}},
		{"/users/:userId", nav.RouteConfig{
			Component:     p.user,
			RequiresAuth:  true,
			RequiredRoles: []string{RoleAdministrator, RoleSupervisor},
		}},
		{"/reports", nav.RouteConfig{
			Component:           p.reports,
			RequiresAuth:        true,
			RequiredPermissions: []string{PermViewReports},
		}},
		{nav.NotFoundPath, static("not-found")},
		{nav.ForbiddenPath, static("forbidden")},
		{nav.ErrorPath, static("error")},
	}

	for _, e := range entries {
		if err := table.Add(e.pattern, e.def); err != nil {
			return fmt.Errorf("register %s: %w", e.pattern, err)
		}
	}
	return nil
}

// NewTable returns a table with every screen registered.
func NewTable(svc services.Services) (*nav.Table, error) {
	table := nav.NewTable()
	if err := Register(table, svc); err != nil {
		return nil, err
	}
	return table, nil
}

func view(name string, data any) nav.Renderable {
	return nav.RenderFunc(func(w io.Writer) error {
		return templates.ExecuteTemplate(w, name, data)
	})
}

func static(name string) nav.Component {
	return func(context.Context, nav.Params) (nav.Renderable, error) {
		return view(name, nil), nil
	}
}

type screens struct {
	svc services.Services
}

func (p *screens) dashboard(ctx context.Context, _ nav.Params) (nav.Renderable, error) {
	report, err := p.svc.BuildReport(ctx)
	if err != nil {
		return nil, err
	}
	return view("dashboard", report), nil
}

func (p *screens) guests(ctx context.Context, _ nav.Params) (nav.Renderable, error) {
	guests, err := p.svc.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	return view("guests", guests), nil
}

type guestView struct {
	Guest  *services.Guest
	Center *services.Center
}

func (p *screens) guest(ctx context.Context, params nav.Params) (nav.Renderable, error) {
	guest, err := p.svc.GetGuest(ctx, params.Value("guestId"))
	if err != nil {
		return nil, err
	}
	// A guest whose center was removed still renders.
	center, _ := p.svc.GetCenter(ctx, guest.CenterID)
	return view("guest", guestView{Guest: guest, Center: center}), nil
}

func (p *screens) centerGuest(ctx context.Context, params nav.Params) (nav.Renderable, error) {
	center, err := p.svc.GetCenter(ctx, params.Value("centerId"))
	if err != nil {
		return nil, err
	}
	guest, err := p.svc.GetGuest(ctx, params.Value("guestId"))
	if err != nil {
		return nil, err
	}
	if guest.CenterID != center.ID {
		return nil, fmt.Errorf("guest %q in center %q: %w", guest.ID, center.ID, services.ErrNotFound)
	}
	return view("guest", guestView{Guest: guest, Center: center}), nil
}

func (p *screens) centers(ctx context.Context, _ nav.Params) (nav.Renderable, error) {
	centers, err := p.svc.ListCenters(ctx)
	if err != nil {
		return nil, err
	}
	return view("centers", centers), nil
}

type centerView struct {
	Center *services.Center
	Guests []*services.Guest
}

func (p *screens) center(ctx context.Context, params nav.Params) (nav.Renderable, error) {
	id := params.Value("centerId")
	center, err := p.svc.GetCenter(ctx, id)
	if err != nil {
		return nil, err
	}
	guests, err := p.svc.ListGuestsByCenter(ctx, id)
	if err != nil {
		return nil, err
	}
	return view("center", centerView{Center: center, Guests: guests}), nil
}

func (p *screens) users(ctx context.Context, _ nav.Params) (nav.Renderable, error) {
	accounts, err := p.svc.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return view("users", accounts), nil
}

func (p *screens) user(ctx context.Context, params nav.Params) (nav.Renderable, error) {
	account, err := p.svc.GetAccount(ctx, params.Value("userId"))
	if err != nil {
		return nil, err
	}
	return view("user", account), nil
}

func (p *screens) reports(ctx context.Context, _ nav.Params) (nav.Renderable, error) {
	report, err := p.svc.BuildReport(ctx)
	if err != nil {
		return nil, err
	}
	return view("reports", report), nil
}
