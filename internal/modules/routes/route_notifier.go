package routes

import (
	"context"
	"fmt"

	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/pkg/email"
	"street-dispatch/pkg/utils"
)

// Notifier is told about route status changes after they are stored.
type Notifier interface {
	NotifyRouteStatus(ctx context.Context, route *models.Route, old models.RouteStatus) error
}

// EmailNotifier mails the dispatcher when a route reaches a terminal status.
type EmailNotifier struct {
	sender    email.ServiceInterface
	templates *email.TemplateManager
	resolver  *lookup.Resolver
	to        string
}

func NewEmailNotifier(sender email.ServiceInterface, templates *email.TemplateManager, resolver *lookup.Resolver, to string) *EmailNotifier {
	return &EmailNotifier{sender: sender, templates: templates, resolver: resolver, to: to}
}

func (n *EmailNotifier) NotifyRouteStatus(ctx context.Context, route *models.Route, old models.RouteStatus) error {
	if !route.Status.IsTerminal() {
		return nil
	}

	data := email.RouteStatusData{
		RouteID:       route.ID,
		ScheduledTime: utils.FormatISOTime(route.ScheduledTime),
		OldStatus:     string(old),
		NewStatus:     string(route.Status),
	}
	if driver, err := n.resolver.User(ctx, route.DriverID, ""); err == nil {
		data.DriverName = driver.Username
	}
	if street, err := n.resolver.Street(ctx, route.StreetID); err == nil {
		data.StreetName = street.Name
	}

	html, err := n.templates.GenerateRouteStatusEmailHTML(data)
	if err != nil {
		return fmt.Errorf("notifier.RenderRouteStatus: %w", err)
	}

	subject := fmt.Sprintf("Route %d %s", route.ID, route.Status)
	plain := fmt.Sprintf("Route %d on %s (driver %s, scheduled %s) changed from %s to %s.",
		route.ID, data.StreetName, data.DriverName, data.ScheduledTime, old, route.Status)

	return n.sender.SendEmail(ctx, n.to, subject, plain, html)
}
