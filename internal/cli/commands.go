package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/dataimport"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/pkg/utils"
)

var commands = map[string]command{
	"init":                  {"", runInit},
	"user create":           {"--username NAME --password PASS --role driver|resident [--street-id ID]", runUserCreate},
	"user list":             {"[--format string|json]", runUserList},
	"user update-street":    {"--user-id ID --street-id ID", runUserUpdateStreet},
	"street add":            {"--name NAME", runStreetAdd},
	"route schedule":        {"--driver-id ID --street-id ID --time ISO-8601", runRouteSchedule},
	"route list":            {"[--status STATUS]", runRouteList},
	"route set-status":      {"--route-id ID --status STATUS", runRouteSetStatus},
	"route start":           {"--route-id ID", routeEvent(models.RouteStart)},
	"route arrive":          {"--route-id ID", routeEvent(models.RouteArrive)},
	"route complete":        {"--route-id ID", routeEvent(models.RouteComplete)},
	"route cancel":          {"--route-id ID", routeEvent(models.RouteCancel)},
	"route update-location": {"--driver-id ID --lat LAT --lng LNG", runRouteUpdateLocation},
	"request open":          {"--resident-id ID --route-id ID --quantity N [--notes TEXT]", runRequestOpen},
	"request manage":        {"--request-id ID --action accept|decline|fulfill|cancel", runRequestManage},
	"request list":          {"--route-id ID", runRequestList},
	"resident inbox":        {"--resident-id ID", runResidentInbox},
	"driver status":         {"--driver-id ID", runDriverStatus},
	"data import":           {"--file PATH [--clear]", runDataImport},
}

func runInit(ctx context.Context, a *App, args []string) error {
	if err := parse(a.flagSet("init"), args); err != nil {
		return err
	}
	if err := a.svc.Init(ctx); err != nil {
		return err
	}
	a.printf("Database initialized.\n")
	return nil
}

func runUserCreate(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("user create")
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password")
	role := fs.String("role", "", "driver or resident")
	streetID := fs.Int64("street-id", 0, "street the resident lives on")
	if err := parse(fs, args, "username", "password", "role"); err != nil {
		return err
	}

	req := models.CreateUserRequest{Username: *username, Password: *password, Role: *role}
	if fs.Changed("street-id") {
		req.StreetID = streetID
	}
	user, err := a.svc.Users.Create(ctx, req)
	if err != nil {
		return err
	}

	if user.StreetID != nil {
		a.printf("User %s created with id %d and street %d\n", user.Username, user.ID, *user.StreetID)
		return nil
	}
	a.printf("User %s created with id %d\n", user.Username, user.ID)
	if user.Role == models.RoleResident {
		a.printf("Resident users must have a street_id. You can add street_id later using the user update-street command\n")
	}
	return nil
}

func runUserList(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("user list")
	format := fs.String("format", "string", "string or json")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *format != "string" && *format != "json" {
		return models.NewValidationError("format", fmt.Sprintf("%q is not one of string, json", *format))
	}

	list, err := a.svc.Reports.Users(ctx)
	if err != nil {
		return err
	}
	if *format == "json" {
		if list == nil {
			list = []*models.User{}
		}
		raw, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("cli.UserList: %w", err)
		}
		a.printf("%s\n", raw)
		return nil
	}

	if len(list) == 0 {
		a.printf("No users found.\n")
		return nil
	}
	for _, u := range list {
		street := "none"
		if u.StreetID != nil {
			street = strconv.FormatInt(*u.StreetID, 10)
		}
		a.printf("User ID: %d, Username: %s, Role: %s, Street ID: %s\n", u.ID, u.Username, u.Role, street)
	}
	return nil
}

func runUserUpdateStreet(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("user update-street")
	userID := fs.Int64("user-id", 0, "resident id")
	streetID := fs.Int64("street-id", 0, "street id")
	if err := parse(fs, args, "user-id", "street-id"); err != nil {
		return err
	}

	user, street, err := a.svc.Users.UpdateStreet(ctx, models.UpdateUserStreetRequest{UserID: *userID, StreetID: *streetID})
	if err != nil {
		return err
	}
	a.printf("User %s now lives on street %s (id %d)\n", user.Username, street.Name, street.ID)
	return nil
}

func runStreetAdd(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("street add")
	name := fs.String("name", "", "street name")
	if err := parse(fs, args, "name"); err != nil {
		return err
	}

	street, err := a.svc.Streets.Add(ctx, models.AddStreetRequest{Name: *name})
	if err != nil {
		return err
	}
	a.printf("Street %s created with id %d\n", street.Name, street.ID)
	return nil
}

func runRouteSchedule(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("route schedule")
	driverID := fs.Int64("driver-id", 0, "driver id")
	streetID := fs.Int64("street-id", 0, "street id")
	at := fs.String("time", "", "scheduled time, ISO-8601")
	if err := parse(fs, args, "driver-id", "street-id", "time"); err != nil {
		return err
	}

	route, err := a.svc.Routes.Schedule(ctx, models.ScheduleRouteRequest{DriverID: *driverID, StreetID: *streetID, Time: *at})
	if err != nil {
		return err
	}
	a.printf("Route %d scheduled for driver %d on street %d at %s with status %s\n",
		route.ID, route.DriverID, route.StreetID, utils.FormatISOTime(route.ScheduledTime), route.Status)
	return nil
}

func runRouteList(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("route list")
	status := fs.String("status", "", "only routes with this status")
	if err := parse(fs, args); err != nil {
		return err
	}

	var filter models.RouteFilter
	if *status != "" {
		st, err := models.ParseRouteStatus(*status)
		if err != nil {
			return err
		}
		filter.Status = &st
	}

	views, err := a.svc.Reports.Routes(ctx, filter)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		a.printf("No routes found.\n")
		return nil
	}
	for _, v := range views {
		a.printf("%s\n", routeLine(v))
	}
	return nil
}

func runRouteSetStatus(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("route set-status")
	routeID := fs.Int64("route-id", 0, "route id")
	status := fs.String("status", "", "new status")
	if err := parse(fs, args, "route-id", "status"); err != nil {
		return err
	}

	route, old, err := a.svc.Routes.SetStatus(ctx, *routeID, *status)
	if err != nil {
		return err
	}
	a.printf("Route %d status changed from %s to %s.\n", route.ID, old, route.Status)
	return nil
}

var eventMessages = map[models.RouteEvent]string{
	models.RouteStart:    "Route %d started. Status changed to '%s'.\n",
	models.RouteArrive:   "Route %d marked as arrived. Status changed to '%s'.\n",
	models.RouteComplete: "Route %d completed. Status changed to '%s'.\n",
	models.RouteCancel:   "Route %d cancelled. Status changed to '%s'.\n",
}

func routeEvent(ev models.RouteEvent) func(context.Context, *App, []string) error {
	return func(ctx context.Context, a *App, args []string) error {
		fs := a.flagSet("route " + string(ev))
		routeID := fs.Int64("route-id", 0, "route id")
		if err := parse(fs, args, "route-id"); err != nil {
			return err
		}

		var apply func(context.Context, int64) (*models.Route, error)
		switch ev {
		case models.RouteStart:
			apply = a.svc.Routes.Start
		case models.RouteArrive:
			apply = a.svc.Routes.Arrive
		case models.RouteComplete:
			apply = a.svc.Routes.Complete
		default:
			apply = a.svc.Routes.Cancel
		}

		route, err := apply(ctx, *routeID)
		if err != nil {
			return err
		}
		a.printf(eventMessages[ev], route.ID, route.Status)
		return nil
	}
}

func runRouteUpdateLocation(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("route update-location")
	driverID := fs.Int64("driver-id", 0, "driver id")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	if err := parse(fs, args, "driver-id", "lat", "lng"); err != nil {
		return err
	}

	route, err := a.svc.Routes.UpdateLocation(ctx, models.LocationUpdateRequest{DriverID: *driverID, Latitude: *lat, Longitude: *lng})
	if err != nil {
		return err
	}
	a.printf("Driver %d location updated to lat: %g, lng: %g for route %d.\n", *driverID, *lat, *lng, route.ID)
	return nil
}

func runRequestOpen(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("request open")
	residentID := fs.Int64("resident-id", 0, "resident id")
	routeID := fs.Int64("route-id", 0, "route id")
	quantity := fs.Int("quantity", 0, "number of items")
	notes := fs.String("notes", "", "note for the driver")
	if err := parse(fs, args, "resident-id", "route-id", "quantity"); err != nil {
		return err
	}

	req, err := a.svc.Requests.Open(ctx, models.OpenRequestRequest{
		ResidentID: *residentID,
		RouteID:    *routeID,
		Quantity:   quantity,
		Notes:      *notes,
	})
	if err != nil {
		return err
	}
	a.printf("Request %d created for route %d with status %s.\n", req.ID, req.RouteID, req.Status)
	return nil
}

func runRequestManage(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("request manage")
	requestID := fs.Int64("request-id", 0, "request id")
	action := fs.String("action", "", "accept, decline, fulfill or cancel")
	if err := parse(fs, args, "request-id", "action"); err != nil {
		return err
	}

	req, old, err := a.svc.Requests.Manage(ctx, *requestID, *action)
	if err != nil {
		return err
	}
	a.printf("Request %d status changed from %s to %s.\n", req.ID, old, req.Status)
	return nil
}

func runRequestList(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("request list")
	routeID := fs.Int64("route-id", 0, "route id")
	if err := parse(fs, args, "route-id"); err != nil {
		return err
	}

	route, stops, err := a.svc.Reports.Stops(ctx, *routeID)
	if err != nil {
		return err
	}
	if len(stops) == 0 {
		a.printf("No stops found for route %d.\n", route.ID)
		return nil
	}
	a.printf("Stops for Route %d:\n", route.ID)
	for _, s := range stops {
		a.printf("Request ID: %d, Resident: %s, Quantity: %s, Notes: %s, Status: %s, Created At: %s\n",
			s.Request.ID, s.ResidentName, optInt(s.Request.Quantity), optString(s.Request.Notes),
			s.Request.Status, utils.FormatISOTime(s.Request.CreatedAt))
	}
	return nil
}

func runResidentInbox(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("resident inbox")
	residentID := fs.Int64("resident-id", 0, "resident id")
	if err := parse(fs, args, "resident-id"); err != nil {
		return err
	}

	inbox, err := a.svc.Reports.Inbox(ctx, *residentID)
	if err != nil {
		return err
	}
	if len(inbox.Routes) == 0 {
		a.printf("No routes scheduled for resident %s's street.\n", inbox.Resident.Username)
		return nil
	}
	a.printf("Route(s) scheduled for street %s:\n", inbox.Street.Name)
	for _, v := range inbox.Routes {
		a.printf("%s\n", routeLine(v))
	}
	return nil
}

func runDriverStatus(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("driver status")
	driverID := fs.Int64("driver-id", 0, "driver id")
	if err := parse(fs, args, "driver-id"); err != nil {
		return err
	}

	st, err := a.svc.Reports.DriverStatus(ctx, *driverID)
	if err != nil {
		return err
	}
	if c := st.Current; c != nil {
		a.printf("Current Route: ID = %d on %s scheduled for %s with status %s.\n",
			c.Route.ID, c.StreetName, utils.FormatISOTime(c.Route.ScheduledTime), c.Route.Status)
	} else {
		a.printf("No current deliveries.\n")
	}
	if n := st.Next; n != nil {
		a.printf("Next Route: Driver %s is scheduled to go to street %s at %s.\n",
			n.DriverName, n.StreetName, utils.FormatISOTime(n.Route.ScheduledTime))
	} else {
		a.printf("No upcoming deliveries.\n")
	}
	return nil
}

func runDataImport(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("data import")
	file := fs.String("file", "", "JSON document to import")
	wipe := fs.Bool("clear", false, "delete existing data first")
	if err := parse(fs, args, "file"); err != nil {
		return err
	}

	doc, err := dataimport.Load(*file)
	if err != nil {
		return err
	}
	sum, err := a.svc.Importer.Run(ctx, doc, *wipe)
	if err != nil {
		return err
	}
	if sum.Cleared {
		a.printf("Existing data cleared.\n")
	}
	a.printf("Import complete.\n")
	for _, line := range sum.Lines() {
		a.printf("%s\n", line)
	}
	return nil
}

func routeLine(v reports.RouteView) string {
	return fmt.Sprintf("Route ID: %d, Driver: %s, Street: %s, Scheduled Time: %s, Status: %s",
		v.Route.ID, v.DriverName, v.StreetName, utils.FormatISOTime(v.Route.ScheduledTime), v.Route.Status)
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func optString(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}
