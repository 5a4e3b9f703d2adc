package pages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/casedesk/nav"
	"github.com/yshengliao/casedesk/pages"
	"github.com/yshengliao/casedesk/services"
)

func newRouter(t *testing.T, oracle nav.AuthOracle) (*nav.Router, *nav.MemoryMount) {
	t.Helper()
	table, err := pages.NewTable(services.NewSeededStore())
	require.NoError(t, err)
	mount := nav.NewMemoryMount()
	return nav.New(table, oracle, nav.NewMemoryHistory("/"), mount), mount
}

func staff(role string, perms ...string) nav.AuthOracle {
	return nav.NewStaticOracle(nav.AuthState{
		Token:       "token",
		User:        &nav.User{ID: "u1", Username: "staff"},
		Role:        role,
		Permissions: perms,
	})
}

func TestRegisterOrder(t *testing.T) {
	table, err := pages.NewTable(services.NewSeededStore())
	require.NoError(t, err)

	var patterns []string
	for _, r := range table.Routes() {
		patterns = append(patterns, r.Pattern())
	}
	assert.Equal(t, []string{
		"/", "/recovery", "/dashboard",
		"/guests", "/guests/:guestId",
		"/centers", "/centers/:centerId", "/centers/:centerId/guests/:guestId",
		"/users", "/users/:userId", "/reports",
		"/404", "/403", "/error",
	}, patterns)
}

func TestRegisterTwiceKeepsOrder(t *testing.T) {
	table := nav.NewTable()
	store := services.NewSeededStore()
	require.NoError(t, pages.Register(table, store))
	require.NoError(t, pages.Register(table, store))
	assert.Equal(t, 14, table.Len())
}

func TestScreens(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		oracle   nav.AuthOracle
		path     string
		outcome  nav.Outcome
		rendered string
		contains string
	}{
		{"login is public", nav.Anonymous, "/recovery", nav.OutcomeGranted, "/recovery", "Password recovery"},
		{"anonymous dashboard", nav.Anonymous, "/dashboard", nav.OutcomeUnauthenticated, "/", "login-form"},
		{"dashboard counts", staff("caseworker"), "/dashboard", nav.OutcomeGranted, "/dashboard", "3 guests (2 active)"},
		{"guests need permission", staff("caseworker"), "/guests", nav.OutcomeForbidden, "/403", "Access denied"},
		{"guest list", staff("caseworker", pages.PermViewGuests), "/guests", nav.OutcomeGranted, "/guests", "Marta Lopes"},
		{"guest detail", staff("caseworker", pages.PermViewGuests), "/guests/g-2", nav.OutcomeGranted, "/guests/:guestId", "Rui Costa"},
		{"unknown guest", staff("caseworker", pages.PermViewGuests), "/guests/g-9", nav.OutcomeGranted, "/error", "Something went wrong"},
		{"center detail", staff("caseworker"), "/centers/south", nav.OutcomeGranted, "/centers/:centerId", "South House"},
		{"guest in center", staff("caseworker", pages.PermViewGuests), "/centers/north/guests/g-1", nav.OutcomeGranted, "/centers/:centerId/guests/:guestId", "Ana Silva"},
		{"guest in other center", staff("caseworker", pages.PermViewGuests), "/centers/south/guests/g-1", nav.OutcomeGranted, "/error", "Something went wrong"},
		{"users admin only", staff(pages.RoleSupervisor), "/users", nav.OutcomeForbidden, "/403", "Access denied"},
		{"users admin", staff(pages.RoleAdministrator), "/users", nav.OutcomeGranted, "/users", "sara"},
		{"user supervisor", staff(pages.RoleSupervisor), "/users/admin", nav.OutcomeGranted, "/users/:userId", "admin@casedesk.local"},
		{"reports", staff("caseworker", pages.PermViewReports), "/reports", nav.OutcomeGranted, "/reports", "Case load"},
		{"unknown path", staff("caseworker"), "/nowhere", nav.OutcomeNotFound, "/404", "Page not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mount := newRouter(t, tt.oracle)
			res := router.Navigate(ctx, tt.path)

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, nav.MountReplaced, res.Mount)
			assert.Equal(t, tt.rendered, res.Rendered)
			assert.Contains(t, mount.Content(), tt.contains)
		})
	}
}

func TestUnknownRecordReportsError(t *testing.T) {
	router, _ := newRouter(t, staff("caseworker"))
	res := router.Navigate(context.Background(), "/centers/east")

	assert.ErrorIs(t, res.Err, services.ErrNotFound)
	assert.ErrorIs(t, res.Err, nav.ErrRender)
	assert.Equal(t, "/", router.CurrentPath())
}

func TestTemplatesEscape(t *testing.T) {
	store := services.NewSeededStore()
	store.PutGuest(&services.Guest{ID: "g-x", FirstName: "<script>", LastName: "x", CenterID: "north"})
	table, err := pages.NewTable(store)
	require.NoError(t, err)

	mount := nav.NewMemoryMount()
	router := nav.New(table, staff("caseworker", pages.PermViewGuests), nav.NewMemoryHistory("/"), mount)
	router.Navigate(context.Background(), "/guests/g-x")

	assert.NotContains(t, mount.Content(), "<script>")
	assert.Contains(t, mount.Content(), "&lt;script&gt;")
}
